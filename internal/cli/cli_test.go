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

	"github.com/me/gokite/internal/bridge"
	"github.com/me/gokite/internal/config"
	"github.com/me/gokite/internal/engine"
)

func testdataPath(rel string) string {
	return filepath.Join("..", "..", "testdata", rel)
}

// clearEnv keeps the caller's environment out of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvApp, "")
	t.Setenv(config.EnvDB, "")
	t.Setenv(config.EnvActionConf, "")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := root.Execute()
	return buf.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "gokite.db")
}

func TestJobsCommand(t *testing.T) {
	clearEnv(t)
	output, err := runCLI(t, "--db", tempDB(t), "jobs")
	if err != nil {
		t.Fatalf("jobs error: %v", err)
	}
	for _, want := range []string{"examples.keep-odd-users", "source.users", "view-list", "event.stream", "examples.transform"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestValidateCommand(t *testing.T) {
	clearEnv(t)
	output, err := runCLI(t, "--db", tempDB(t), "--app", testdataPath("users-app.yaml"), "validate")
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if !strings.Contains(output, `Application "users" is valid (3 schedules)`) {
		t.Errorf("unexpected output: %s", output)
	}
	if !strings.Contains(output, "examples.rollup") {
		t.Errorf("expected schedule listing, got: %s", output)
	}
}

func TestValidateCommand_AppFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvApp, testdataPath("users-app.yaml"))
	t.Setenv(config.EnvDB, tempDB(t))

	if _, err := runCLI(t, "validate"); err != nil {
		t.Fatalf("validate error: %v", err)
	}
}

func TestValidateCommand_NoApp(t *testing.T) {
	clearEnv(t)
	_, err := runCLI(t, "--db", tempDB(t), "validate")
	if code := bridge.ExitCode(err); code != bridge.ExitConfiguration {
		t.Errorf("exit code = %d, want %d (err %v)", code, bridge.ExitConfiguration, err)
	}
}

func TestValidateCommand_UnknownJob(t *testing.T) {
	clearEnv(t)
	app := filepath.Join(t.TempDir(), "app.yaml")
	os.WriteFile(app, []byte(`
name: broken
schedules:
  - job: examples.nope
    frequency: "@hourly"
`), 0o644)

	_, err := runCLI(t, "--db", tempDB(t), "--app", app, "validate")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "examples.nope") {
		t.Errorf("error should name the job, got: %v", err)
	}
}

func TestLocalThenPartitions(t *testing.T) {
	clearEnv(t)
	db := tempDB(t)

	output, err := runCLI(t, "--db", db, "--app", testdataPath("users-app.yaml"),
		"local", "--at", "2015-05-15T12:00Z")
	if err != nil {
		t.Fatalf("local error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "Ran all scheduled jobs for 2015-05-15T12:00:00Z") {
		t.Errorf("unexpected output: %s", output)
	}

	output, err = runCLI(t, "--db", db, "partitions", "odd_users")
	if err != nil {
		t.Fatalf("partitions error: %v", err)
	}
	if !strings.Contains(output, "view://odd_users?year=2015&month=5&day=15&hour=12") {
		t.Errorf("expected hour 12 partition, got: %s", output)
	}
	if !strings.Contains(output, "  5  ") {
		t.Errorf("expected 5 odd users, got: %s", output)
	}
	if !strings.Contains(output, "5 records in 1 partitions") {
		t.Errorf("expected a total line, got: %s", output)
	}
}

func TestLocal_DryRun(t *testing.T) {
	clearEnv(t)
	output, err := runCLI(t, "--db", tempDB(t), "--app", testdataPath("users-app.yaml"),
		"local", "--from", "2015-05-15T10:00Z", "--to", "2015-05-15T12:00Z", "--dry-run", "--job", "examples.rollup")
	if err != nil {
		t.Fatalf("local --dry-run error: %v", err)
	}
	if !strings.Contains(output, "2015-05-15T12:00:00Z") || !strings.Contains(output, "examples.rollup") {
		t.Errorf("expected the 12:00 rollup firing, got: %s", output)
	}
	if strings.Contains(output, "11:00") {
		t.Errorf("rollup fires every three hours, got: %s", output)
	}
}

func TestLocal_Backfill(t *testing.T) {
	clearEnv(t)
	db := tempDB(t)
	output, err := runCLI(t, "--db", db, "--app", testdataPath("users-app.yaml"),
		"local", "--from", "2015-05-15T10:00Z", "--to", "2015-05-15T12:00Z")
	if err != nil {
		t.Fatalf("local backfill error: %v\noutput: %s", err, output)
	}
	// generate and keep-odd fire three times, rollup once at 12:00.
	if !strings.Contains(output, "Ran 7 firings") {
		t.Errorf("unexpected output: %s", output)
	}

	output, err = runCLI(t, "--db", db, "partitions", "odd_user_counts")
	if err != nil {
		t.Fatalf("partitions error: %v", err)
	}
	if !strings.Contains(output, "hour=12") {
		t.Errorf("expected rollup output, got: %s", output)
	}
}

func TestLocal_RequiresTimes(t *testing.T) {
	clearEnv(t)
	_, err := runCLI(t, "--db", tempDB(t), "--app", testdataPath("users-app.yaml"), "local")
	if code := bridge.ExitCode(err); code != bridge.ExitConfiguration {
		t.Errorf("exit code = %d, want %d (err %v)", code, bridge.ExitConfiguration, err)
	}
}

func TestRunCommand(t *testing.T) {
	clearEnv(t)
	db := tempDB(t)
	metricsFile := filepath.Join(t.TempDir(), "gokite.prom")
	t.Setenv(config.EnvActionConf, testdataPath("trigger.yaml"))

	output, err := runCLI(t, "--db", db, "--app", testdataPath("users-app.yaml"),
		"--metrics-file", metricsFile, "run", "examples.generate-users", "-D", "generator.count=6")
	if err != nil {
		t.Fatalf("run error: %v\noutput: %s", err, output)
	}

	output, err = runCLI(t, "--db", db, "partitions", "users")
	if err != nil {
		t.Fatalf("partitions error: %v", err)
	}
	if !strings.Contains(output, "hour=12") || !strings.Contains(output, "  6  ") {
		t.Errorf("expected 6 users at hour 12, got: %s", output)
	}

	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("read metrics file: %v", err)
	}
	if !strings.Contains(string(data), `gokite_job_invocations_total{job="examples.generate-users",outcome="success"} 1`) {
		t.Errorf("expected invocation counter, got: %s", data)
	}
}

func TestRunCommand_ConfFlag(t *testing.T) {
	clearEnv(t)
	db := tempDB(t)
	_, err := runCLI(t, "--db", db, "--app", testdataPath("users-app.yaml"),
		"run", "examples.generate-users", "--conf", testdataPath("trigger.yaml"))
	if err != nil {
		t.Fatalf("run error: %v", err)
	}

	output, err := runCLI(t, "--db", db, "partitions", "users")
	if err != nil {
		t.Fatalf("partitions error: %v", err)
	}
	if !strings.Contains(output, "  4  ") {
		t.Errorf("expected trigger count of 4 users, got: %s", output)
	}
}

func TestRunCommand_MissingActionConf(t *testing.T) {
	clearEnv(t)
	_, err := runCLI(t, "--db", tempDB(t), "run", "examples.generate-users")
	if err == nil || !strings.Contains(err.Error(), config.EnvActionConf) {
		t.Fatalf("expected missing %s error, got: %v", config.EnvActionConf, err)
	}
	if code := bridge.ExitCode(err); code != bridge.ExitConfiguration {
		t.Errorf("exit code = %d, want %d", code, bridge.ExitConfiguration)
	}
}

func TestRunCommand_MissingBinding(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvActionConf, testdataPath("trigger.yaml"))

	// Without an application nothing binds the output view.
	_, err := runCLI(t, "--db", tempDB(t), "run", "examples.generate-users")
	if code := bridge.ExitCode(err); code != bridge.ExitBinding {
		t.Errorf("exit code = %d, want %d (err %v)", code, bridge.ExitBinding, err)
	}
}

func TestRunCommand_Override(t *testing.T) {
	clearEnv(t)
	db := tempDB(t)
	t.Setenv(config.EnvActionConf, testdataPath("trigger.yaml"))

	_, err := runCLI(t, "--db", db, "run", "examples.generate-users",
		"-D", "binding.generated.users=view://adhoc?batch=7")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	output, err := runCLI(t, "--db", db, "partitions", "adhoc")
	if err != nil {
		t.Fatalf("partitions error: %v", err)
	}
	if !strings.Contains(output, "view://adhoc?batch=7") {
		t.Errorf("expected override partition, got: %s", output)
	}
}

func TestResolveCommand(t *testing.T) {
	clearEnv(t)
	output, err := runCLI(t, "--db", tempDB(t), "--app", testdataPath("users-app.yaml"),
		"resolve", "examples.rollup", "--at", "2015-05-15T12:00Z")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	want := "rollup.window (in)\n" +
		"  view://odd_users?year=2015&month=5&day=15&hour=10\n" +
		"  view://odd_users?year=2015&month=5&day=15&hour=11\n" +
		"  view://odd_users?year=2015&month=5&day=15&hour=12\n" +
		"rollup.summary (out)\n" +
		"  view://odd_user_counts?year=2015&month=5&day=15&hour=12\n"
	if output != want {
		t.Errorf("resolve output:\n%s\nwant:\n%s", output, want)
	}
}

func TestResolveCommand_Override(t *testing.T) {
	clearEnv(t)
	output, err := runCLI(t, "--db", tempDB(t), "--app", testdataPath("users-app.yaml"),
		"resolve", "examples.keep-odd-users", "--at", "2015-05-15T12:00Z",
		"-D", "binding.source.users=view://a,view://b")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if !strings.Contains(output, "source.users (in, override)\n  view://a\n  view://b\n") {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestServeCommand_RequiresApp(t *testing.T) {
	clearEnv(t)
	_, err := runCLI(t, "--db", tempDB(t), "serve", "--addr", "127.0.0.1:0")
	if code := bridge.ExitCode(err); code != bridge.ExitConfiguration {
		t.Errorf("exit code = %d, want %d (err %v)", code, bridge.ExitConfiguration, err)
	}
}

func TestServeCommand_BadCatchUp(t *testing.T) {
	clearEnv(t)
	_, err := runCLI(t, "--db", tempDB(t), "--app", testdataPath("users-app.yaml"),
		"serve", "--catch-up", "yesterday")
	if code := bridge.ExitCode(err); code != bridge.ExitConfiguration {
		t.Errorf("exit code = %d, want %d (err %v)", code, bridge.ExitConfiguration, err)
	}
}

func TestExportCommand_RequiresBucket(t *testing.T) {
	clearEnv(t)
	_, err := runCLI(t, "--db", tempDB(t), "export", "users")
	if code := bridge.ExitCode(err); code != bridge.ExitConfiguration {
		t.Errorf("exit code = %d, want %d (err %v)", code, bridge.ExitConfiguration, err)
	}
}

func TestOpenSession_InstallsSharedEngine(t *testing.T) {
	clearEnv(t)
	prevCfg, prevLogger := cfg, logger
	prevEngine := engine.SetShared(nil)
	t.Cleanup(func() {
		cfg, logger = prevCfg, prevLogger
		engine.SetShared(prevEngine)
	})
	cfg = config.DefaultRunConfig()
	cfg.DBPath = tempDB(t)
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := openSession(context.Background(), false)
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}
	defer s.Close()
	if engine.Shared() != s.engine {
		t.Error("the session engine should be the process-wide registry")
	}
}
