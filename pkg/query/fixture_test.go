package query

import (
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

type fixture struct {
	users, depts      *schema.Table
	name, age, score  *schema.Column
	dept, dname       *schema.Column
	items             *schema.Table
	itemID, itemLabel *schema.Column
	itemQty           *schema.Column
}

func newFixture() fixture {
	f := fixture{
		name:      schema.MustColumn("name", types.KindText),
		age:       schema.MustColumn("age", types.KindInteger),
		score:     schema.MustColumn("score", types.KindReal),
		dept:      schema.MustColumn("dept", types.KindText),
		dname:     schema.MustColumn("name", types.KindText),
		itemID:    schema.MustColumn("id", types.KindInteger, schema.PrimaryKey()),
		itemLabel: schema.MustColumn("label", types.KindText, schema.NotNull()),
		itemQty:   schema.MustColumn("qty", types.KindInteger, schema.Default(0)),
	}
	f.users = schema.MustTable("users", []*schema.Column{f.name, f.age, f.score})
	f.depts = schema.MustTable("depts", []*schema.Column{f.dept, f.dname})
	f.items = schema.MustTable("items", []*schema.Column{f.itemID, f.itemLabel, f.itemQty})
	return f
}
