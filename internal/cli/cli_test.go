package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lifeplan/internal/config"
	"lifeplan/internal/domain"
)

type fakeUsers struct {
	ids     map[string]string
	created []string
}

func (f *fakeUsers) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	if id, ok := f.ids[email]; ok {
		return id, nil
	}
	return "", domain.ErrNotFound
}

func (f *fakeUsers) CreateUser(ctx context.Context, email, password string) (string, error) {
	f.created = append(f.created, email)
	return "new-" + email, nil
}

func testEnv(t *testing.T) *Env {
	t.Helper()
	return &Env{
		Config: &config.Config{
			Environment:    "test",
			DatabaseDriver: config.DriverSQLite,
			SQLitePath:     filepath.Join(t.TempDir(), "lifeplan.db"),
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Users: &fakeUsers{ids: map[string]string{
			"alice@example.com": "alice",
			"bob@example.com":   "bob",
		}},
	}
}

func run(t *testing.T, env *Env, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(env)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// householdID pulls the id out of "✓ Created household <id>: <name>"
func householdID(t *testing.T, out string) string {
	t.Helper()
	_, rest, ok := strings.Cut(out, "Created household ")
	if !ok {
		t.Fatalf("unexpected output: %q", out)
	}
	id, _, _ := strings.Cut(rest, ":")
	return id
}

func TestMigrate(t *testing.T) {
	env := testEnv(t)

	out, err := run(t, env, "migrate")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out, "Schema up to date (driver: sqlite") {
		t.Errorf("unexpected output: %q", out)
	}

	if _, err := run(t, env, "migrate", "--drop"); err == nil || !strings.Contains(err.Error(), "postgres") {
		t.Errorf("expected --drop to be rejected for sqlite, got %v", err)
	}

	env.Config.Environment = "prod"
	if _, err := run(t, env, "migrate", "--drop"); err == nil || !strings.Contains(err.Error(), "prod") {
		t.Errorf("expected --drop to be refused in prod, got %v", err)
	}
}

func TestHouseholdCommands(t *testing.T) {
	env := testEnv(t)

	out, err := run(t, env, "household", "create", "Home", "--actor-email", "alice@example.com", "--display-name", "Alice")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := householdID(t, out)
	if !strings.Contains(out, "Admin: alice") {
		t.Errorf("expected alice as admin, got %q", out)
	}

	out, err = run(t, env, "household", "add-member", id, "--actor", "alice", "--email", "bob@example.com", "--display-name", "Bob")
	if err != nil {
		t.Fatalf("add-member failed: %v", err)
	}
	if !strings.Contains(out, "bob is member (active)") {
		t.Errorf("unexpected add-member output: %q", out)
	}

	out, err = run(t, env, "household", "members", id, "--actor", "bob")
	if err != nil {
		t.Fatalf("members failed: %v", err)
	}
	for _, want := range []string{"USER", "alice", "Alice", "admin", "bob", "Bob", "member"} {
		if !strings.Contains(out, want) {
			t.Errorf("members output missing %q:\n%s", want, out)
		}
	}

	// Only the admin may add members
	_, err = run(t, env, "household", "add-member", id, "--actor", "bob", "--user", "carol")
	if err == nil || !strings.Contains(err.Error(), "failed to add member") {
		t.Errorf("expected forbidden add-member, got %v", err)
	}
}

func TestHouseholdCommands_UserResolution(t *testing.T) {
	env := testEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no actor", []string{"household", "create", "Home"}, "--actor or --actor-email is required"},
		{"both flags", []string{"household", "create", "Home", "--actor", "a", "--actor-email", "alice@example.com"}, "either --actor or --actor-email"},
		{"unknown email", []string{"household", "create", "Home", "--actor-email", "nobody@example.com"}, "resolve nobody@example.com"},
		{"missing name", []string{"household", "create", "--actor", "alice"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, env, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUserCreate(t *testing.T) {
	env := testEnv(t)
	users := env.Users.(*fakeUsers)

	out, err := run(t, env, "user", "create", "carol@example.com", "--password", "secret123")
	if err != nil {
		t.Fatalf("user create failed: %v", err)
	}
	if !strings.Contains(out, "new-carol@example.com") || len(users.created) != 1 {
		t.Errorf("unexpected result: %q %v", out, users.created)
	}

	if _, err := run(t, env, "user", "create", "dave@example.com"); err == nil {
		t.Error("expected error without --password")
	}

	env.Config.Environment = "prod"
	if _, err := run(t, env, "user", "create", "erin@example.com", "--password", "x"); err == nil {
		t.Error("expected prod to be refused")
	}
}

func TestUsers_RequiresSupabaseConfig(t *testing.T) {
	env := testEnv(t)
	env.Users = nil

	_, err := run(t, env, "household", "create", "Home", "--actor-email", "alice@example.com")
	if err == nil || !strings.Contains(err.Error(), "SUPABASE_URL") {
		t.Errorf("expected missing supabase config error, got %v", err)
	}
}

func TestScore(t *testing.T) {
	dir := t.TempDir()
	bare := filepath.Join(dir, "bare.json")
	os.WriteFile(bare, []byte(`{"fun": "Sailing", "health": "Run a marathon"}`), 0644)
	wrapped := filepath.Join(dir, "doc.json")
	os.WriteFile(wrapped, []byte(`{"fields": {"fun": "Sailing", "health": "Run a marathon"}}`), 0644)

	for _, path := range []string{bare, wrapped} {
		out, err := run(t, testEnv(t), "score", path, "--kind", "vision")
		if err != nil {
			t.Fatalf("score %s failed: %v", path, err)
		}
		if !strings.Contains(out, "vision completion: 14% (2/14)") {
			t.Errorf("unexpected score output: %q", out)
		}
		if !strings.Contains(out, "missing forward") || strings.Contains(out, "missing fun") {
			t.Errorf("unexpected missing list: %q", out)
		}
	}

	if _, err := run(t, testEnv(t), "score", bare, "--kind", "diary"); err == nil {
		t.Error("expected invalid kind error")
	}
	if _, err := run(t, testEnv(t), "score", filepath.Join(dir, "absent.json")); err == nil {
		t.Error("expected missing file error")
	}
}
