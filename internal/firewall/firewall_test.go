package firewall

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/tlsdeploy/tlsdeploy/internal/executor"
)

const activeStatus = `Status: active

To                         Action      From
--                         ------      ----
OpenSSH                    ALLOW       Anywhere
80/tcp                     ALLOW       Anywhere
443/tcp                    ALLOW       Anywhere
`

func TestGetStatus(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		wantActive bool
		wantRules  int
	}{
		{"active with rules", activeStatus, true, 3},
		{"inactive", "Status: inactive\n", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &executor.MockExecutor{
				ExecuteFunc: func(name string, args ...string) ([]byte, error) {
					return []byte(tt.output), nil
				},
			}
			SetExecutor(mock)
			defer ResetExecutor()

			st, err := GetStatus(context.Background())
			if err != nil {
				t.Fatalf("GetStatus failed: %v", err)
			}
			if !st.Installed {
				t.Error("expected Installed")
			}
			if st.Active != tt.wantActive {
				t.Errorf("Active = %v, want %v", st.Active, tt.wantActive)
			}
			if len(st.Rules) != tt.wantRules {
				t.Errorf("got %d rules, want %d: %v", len(st.Rules), tt.wantRules, st.Rules)
			}
		})
	}
}

func TestGetStatusNotInstalled(t *testing.T) {
	SetExecutor(&executor.MockExecutor{
		LookPathFunc: func(file string) (string, error) {
			return "", fmt.Errorf("not found")
		},
	})
	defer ResetExecutor()

	st, err := GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if st.Installed {
		t.Error("ufw should be reported as not installed")
	}
}

func TestEnsureWebPorts(t *testing.T) {
	t.Run("allows ssh before enabling", func(t *testing.T) {
		mock := &executor.MockExecutor{
			ExecuteFunc: func(name string, args ...string) ([]byte, error) {
				if len(args) > 0 && args[0] == "status" {
					return []byte("Status: inactive\n"), nil
				}
				return []byte("Rules updated\n"), nil
			},
		}
		SetExecutor(mock)
		defer ResetExecutor()

		if err := EnsureWebPorts(context.Background()); err != nil {
			t.Fatalf("EnsureWebPorts failed: %v", err)
		}

		var got []string
		for _, call := range mock.Calls {
			got = append(got, call.Name+" "+strings.Join(call.Args, " "))
		}
		want := []string{
			"ufw allow OpenSSH",
			"ufw allow 80/tcp",
			"ufw allow 443/tcp",
			"ufw status",
			"ufw --force enable",
		}
		if len(got) != len(want) {
			t.Fatalf("unexpected commands: %v", got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("command %d = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("skips enable when already active", func(t *testing.T) {
		mock := &executor.MockExecutor{
			ExecuteFunc: func(name string, args ...string) ([]byte, error) {
				if len(args) > 0 && args[0] == "status" {
					return []byte(activeStatus), nil
				}
				return []byte("Skipping adding existing rule\n"), nil
			},
		}
		SetExecutor(mock)
		defer ResetExecutor()

		if err := EnsureWebPorts(context.Background()); err != nil {
			t.Fatalf("EnsureWebPorts failed: %v", err)
		}
		for _, call := range mock.Calls {
			if len(call.Args) > 0 && call.Args[0] == "--force" {
				t.Error("enable should not run when ufw is already active")
			}
		}
	})

	t.Run("rule failure aborts", func(t *testing.T) {
		SetExecutor(&executor.MockExecutor{
			ExecuteFunc: func(name string, args ...string) ([]byte, error) {
				return []byte("ERROR: permission denied"), fmt.Errorf("exit status 1")
			},
		})
		defer ResetExecutor()

		err := EnsureWebPorts(context.Background())
		if err == nil || !strings.Contains(err.Error(), "OpenSSH") {
			t.Errorf("expected failure on the first rule, got %v", err)
		}
	})

	t.Run("not installed", func(t *testing.T) {
		SetExecutor(&executor.MockExecutor{
			LookPathFunc: func(file string) (string, error) {
				return "", fmt.Errorf("not found")
			},
		})
		defer ResetExecutor()

		if err := EnsureWebPorts(context.Background()); err == nil {
			t.Error("expected error when ufw is missing")
		}
	})
}
