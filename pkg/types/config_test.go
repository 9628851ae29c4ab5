package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "in-memory store needs no DataDir",
			config:  Config{Backend: "sqlite", InMemory: true},
			wantErr: nil,
		},
		{
			name:    "journal mode is case-insensitive",
			config:  Config{Backend: "sqlite", JournalMode: "WAL"},
			wantErr: nil,
		},
		{
			name:    "unknown journal mode returns ErrJournalModeUnknown",
			config:  Config{Backend: "sqlite", JournalMode: "lazy"},
			wantErr: ErrJournalModeUnknown,
		},
		{
			name:    "negative busy timeout returns ErrBusyTimeoutInvalid",
			config:  Config{Backend: "sqlite", BusyTimeout: -1},
			wantErr: ErrBusyTimeoutInvalid,
		},
		{
			name:    "file name with separator returns ErrFileNameInvalid",
			config:  Config{Backend: "sqlite", FileName: "../escape.db"},
			wantErr: ErrFileNameInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigStoreFile(t *testing.T) {
	if got := (Config{}).StoreFile(); got != DefaultFileName {
		t.Fatalf("expected %q, got %q", DefaultFileName, got)
	}
	if got := (Config{FileName: "app.db"}).StoreFile(); got != "app.db" {
		t.Fatalf("expected %q, got %q", "app.db", got)
	}
}
