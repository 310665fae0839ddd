package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/gym-admin/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Environment: "test",
		Log:         config.LogConfig{Level: "error", Format: "text"},
		Storage: config.StorageConfig{
			Backend: "sqlite",
			SQLite:  config.SQLiteConfig{DSN: filepath.Join(t.TempDir(), "gymadmin.db")},
			Breaker: config.BreakerConfig{MaxFailures: 3, OpenTimeout: time.Second},
		},
		Auth: config.AuthConfig{
			Policy:        "open",
			AccessTTL:     time.Hour,
			SigningSecret: "cli-test-secret",
		},
		Simulation: config.SimulationConfig{LatencyScale: 0},
		Client:     config.ClientConfig{BulkConcurrency: 2},
		Keeper:     config.KeeperConfig{Schedule: "@every 1m", RefreshWindow: 5 * time.Minute},
	}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func invoke(t *testing.T, cfg config.Config, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	load := func() (config.Config, error) { return cfg, nil }
	code := run(context.Background(), args, &stdout, &stderr, load)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func mustSucceed(t *testing.T, cfg config.Config, args ...string) string {
	t.Helper()
	res := invoke(t, cfg, args...)
	if res.code != exitOK {
		t.Fatalf("gymadmin %s exited %d: %s", strings.Join(args, " "), res.code, res.stderr)
	}
	return res.stdout
}

func TestRun_Usage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		code int
	}{
		{name: "no command", args: nil, code: exitUsage},
		{name: "unknown command", args: []string{"reboot"}, code: exitUsage},
		{name: "unknown flag", args: []string{"-verbose", "whoami"}, code: exitUsage},
		{name: "login without email", args: []string{"login"}, code: exitUsage},
		{name: "token without subcommand", args: []string{"token"}, code: exitUsage},
		{name: "help", args: []string{"-h"}, code: exitOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := invoke(t, testConfig(t), tc.args...)
			if res.code != tc.code {
				t.Fatalf("expected exit %d, got %d (stderr %q)", tc.code, res.code, res.stderr)
			}
		})
	}

	t.Run("configuration errors exit with 1", func(t *testing.T) {
		t.Parallel()
		var stdout, stderr bytes.Buffer
		load := func() (config.Config, error) { return config.Config{}, errors.New("configuration values are invalid: auth.policy") }
		if code := run(context.Background(), []string{"whoami"}, &stdout, &stderr, load); code != exitError {
			t.Fatalf("expected exit 1, got %d", code)
		}
		if !strings.Contains(stderr.String(), "auth.policy") {
			t.Fatalf("expected the configuration error on stderr, got %q", stderr.String())
		}
	})
}

func TestRun_SessionLifecycle(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)

	res := invoke(t, cfg, "members", "list")
	if res.code != exitError || !strings.Contains(res.stderr, "not logged in") {
		t.Fatalf("expected not logged in failure, got %+v", res)
	}

	out := mustSucceed(t, cfg, "login", "-email", "admin@gym.com", "-password", "Admin123!", "-remember")
	if !strings.Contains(out, "Logged in as admin <admin@gym.com> (admin)") {
		t.Fatalf("unexpected login output %q", out)
	}

	out = mustSucceed(t, cfg, "whoami")
	if !strings.Contains(out, "admin@gym.com") || !strings.Contains(out, "remembered: yes") {
		t.Fatalf("expected the session to persist across invocations, got %q", out)
	}

	mustSucceed(t, cfg, "token", "expire")
	out = mustSucceed(t, cfg, "token", "info")
	if !strings.Contains(out, "state: Expired") {
		t.Fatalf("expected an expired token, got %q", out)
	}

	out = mustSucceed(t, cfg, "members", "list", "-q", "emily")
	if !strings.Contains(out, "Emily Davis") || strings.Contains(out, "John Smith") {
		t.Fatalf("unexpected filtered listing %q", out)
	}
	out = mustSucceed(t, cfg, "token", "info")
	if !strings.Contains(out, "state: Valid") {
		t.Fatalf("expected the session to be restored by refresh, got %q", out)
	}

	mustSucceed(t, cfg, "logout")
	res = invoke(t, cfg, "whoami")
	if res.code != exitError {
		t.Fatalf("expected whoami to fail after logout, got %+v", res)
	}
	res = invoke(t, cfg, "token", "refresh")
	if res.code != exitError || !strings.Contains(res.stderr, "no refresh token") {
		t.Fatalf("expected refresh to fail without a session, got %+v", res)
	}
}

func TestRun_DirectoryPolicy(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Auth.Policy = "directory"

	res := invoke(t, cfg, "login", "-email", "staff@gym.com", "-password", "wrong")
	if res.code != exitError || !strings.Contains(res.stderr, "invalid credentials") {
		t.Fatalf("expected invalid credentials, got %+v", res)
	}

	out := mustSucceed(t, cfg, "login", "-email", "staff@gym.com", "-password", "Staff123!")
	if !strings.Contains(out, "Staff Member <staff@gym.com> (staff)") {
		t.Fatalf("unexpected login output %q", out)
	}

	res = invoke(t, cfg, "members", "add", "-name", "Walk In")
	if res.code != exitError || !strings.Contains(res.stderr, "Admin access required") {
		t.Fatalf("expected staff to be refused member creation, got %+v", res)
	}
	res = invoke(t, cfg, "members", "update", "1", "-status", "Expired")
	if res.code != exitError || !strings.Contains(res.stderr, "Admin access required") {
		t.Fatalf("expected staff to be refused status changes, got %+v", res)
	}

	out = mustSucceed(t, cfg, "members", "update", "1", "-phone", "+1 (555) 222-3333")
	if !strings.Contains(out, "+1 (555) 222-3333") {
		t.Fatalf("expected staff contact edit to succeed, got %q", out)
	}
}

func TestRun_Members(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	mustSucceed(t, cfg, "login", "-email", "admin@gym.com", "-password", "x")

	out := mustSucceed(t, cfg, "members", "add", "-name", "  Dana Lee ", "-email", "dana@email.com", "-plan", "Basic", "-expiry", "2999-01-01", "-amount", "12.50")
	if !strings.Contains(out, "Member added successfully") || !strings.Contains(out, `"id": 5`) {
		t.Fatalf("unexpected add output %q", out)
	}

	out = mustSucceed(t, cfg, "members", "get", "5")
	if !strings.Contains(out, `"name": "Dana Lee"`) || !strings.Contains(out, `"status": "Active"`) || !strings.Contains(out, `"dueAmount": "12.5"`) {
		t.Fatalf("unexpected member %q", out)
	}

	res := invoke(t, cfg, "members", "update", "5", "-status", "Frozen")
	if res.code != exitError || !strings.Contains(res.stderr, "Validation failed") {
		t.Fatalf("expected a validation failure, got %+v", res)
	}

	out = mustSucceed(t, cfg, "members", "update", "5", "-status", "Pending")
	if !strings.Contains(out, `"status": "Pending"`) {
		t.Fatalf("expected the status override, got %q", out)
	}

	out = mustSucceed(t, cfg, "members", "bulk-status", "-status", "Expired", "1", "2")
	if !strings.Contains(out, "Updated 2 members") {
		t.Fatalf("unexpected bulk output %q", out)
	}
	out = mustSucceed(t, cfg, "members", "list", "-status", "Expired")
	for _, name := range []string{"John Smith", "Sarah Johnson"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in expired listing %q", name, out)
		}
	}

	res = invoke(t, cfg, "members", "delete", "42")
	if res.code != exitError || !strings.Contains(res.stderr, "Member not found") {
		t.Fatalf("expected not found, got %+v", res)
	}

	res = invoke(t, cfg, "members", "get", "abc")
	if res.code != exitUsage {
		t.Fatalf("expected a usage error for a bad id, got %+v", res)
	}

	mustSucceed(t, cfg, "members", "bulk-delete", "3", "4")
	mustSucceed(t, cfg, "members", "reset")
	out = mustSucceed(t, cfg, "members", "list")
	if !strings.Contains(out, "Mike Wilson") || strings.Contains(out, "Dana Lee") {
		t.Fatalf("expected the seed after reset, got %q", out)
	}
}

func TestRun_PlansAndDashboard(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	mustSucceed(t, cfg, "login", "-email", "admin@gym.com", "-password", "x")

	out := mustSucceed(t, cfg, "plans", "add", "-name", "Student", "-duration", "3", "-price", "60", "-tax", "9.99")
	if !strings.Contains(out, "Plan added successfully") || !strings.Contains(out, `"total": "69.99"`) {
		t.Fatalf("unexpected plan output %q", out)
	}

	res := invoke(t, cfg, "plans", "add", "-name", "Odd", "-duration", "5", "-price", "1", "-tax", "0")
	if res.code != exitError || !strings.Contains(res.stderr, "duration") {
		t.Fatalf("expected a duration validation error, got %+v", res)
	}

	res = invoke(t, cfg, "plans", "add", "-name", "Odd", "-duration", "1", "-price", "ten", "-tax", "0")
	if res.code != exitUsage {
		t.Fatalf("expected a usage error for a bad price, got %+v", res)
	}

	out = mustSucceed(t, cfg, "plans", "update", "5", "-status", "Inactive")
	if !strings.Contains(out, `"status": "Inactive"`) {
		t.Fatalf("unexpected update output %q", out)
	}

	out = mustSucceed(t, cfg, "plans", "list")
	if !strings.Contains(out, "Student") || !strings.Contains(out, "172.50") {
		t.Fatalf("unexpected plan listing %q", out)
	}

	out = mustSucceed(t, cfg, "dashboard")
	if !strings.Contains(out, "members: 4") || !strings.Contains(out, "outstanding dues: 75.00") || !strings.Contains(out, "active plans: 4 (average total 155.38)") {
		t.Fatalf("unexpected dashboard %q", out)
	}

	mustSucceed(t, cfg, "plans", "delete", "5")
	res = invoke(t, cfg, "plans", "get", "5")
	if res.code != exitError || !strings.Contains(res.stderr, "Plan not found") {
		t.Fatalf("expected not found after delete, got %+v", res)
	}
	out = mustSucceed(t, cfg, "plans", "reset")
	if !strings.Contains(out, "Plans data cleared successfully") {
		t.Fatalf("unexpected reset output %q", out)
	}
}

func TestRun_Keepalive(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Keeper.RefreshWindow = 2 * time.Hour
	mustSucceed(t, cfg, "login", "-email", "admin@gym.com", "-password", "x")

	out := mustSucceed(t, cfg, "-stats", "keepalive", "-once")
	if !strings.Contains(out, "Token refreshed") {
		t.Fatalf("expected a proactive refresh inside the window, got %q", out)
	}

	cfg.Keeper.RefreshWindow = time.Minute
	out = mustSucceed(t, cfg, "keepalive", "-once")
	if !strings.Contains(out, "Token still fresh") {
		t.Fatalf("expected no refresh outside the window, got %q", out)
	}

	res := invoke(t, cfg, "-stats", "dashboard")
	if res.code != exitOK || !strings.Contains(res.stderr, "gymadmin_gateway_requests_total{code=200,method=GET} 1") {
		t.Fatalf("expected gateway stats on stderr, got %+v", res)
	}
}
