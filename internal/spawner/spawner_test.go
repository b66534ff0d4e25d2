package spawner

import (
	"os"
	"testing"

	"github.com/tjper/smash/internal/path"
	"github.com/tjper/smash/internal/process"
)

func newTestSpawner(t *testing.T) *Spawner {
	t.Helper()
	self, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %s", err)
	}
	return New(path.New(), self)
}

func TestResolveAbsoluteAndRelativePaths(t *testing.T) {
	s := newTestSpawner(t)

	tests := map[string]string{
		"absolute path used as-is": "/bin/true",
		"./ relative path used as-is": "./true",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := s.resolve(input)
			if !ok || got != input {
				t.Fatalf("resolve(%q): actual (%q, %v), expected (%q, true)", input, got, ok, input)
			}
		})
	}
}

func TestResolveLooksUpBarePathViaPATH(t *testing.T) {
	s := newTestSpawner(t)

	got, ok := s.resolve("true")
	if !ok {
		t.Fatal("expected true to resolve via PATH")
	}
	if got == "true" {
		t.Fatal("expected resolve to return an absolute path, not the bare name")
	}
}

func TestSpawnPathMissReturnsExitedWithOneWithoutForking(t *testing.T) {
	s := newTestSpawner(t)

	status, err := s.Spawn(process.Context{}, []string{"nonexistent_cmd_xyz"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if status.Code() != 1 {
		t.Fatalf("expected ExitedWith(1), got %v", status)
	}
	if _, running := status.IsRunning(); running {
		t.Fatal("expected a PATH miss to never report Running")
	}
}

func TestSpawnDirectLaunchesAndReportsRunning(t *testing.T) {
	s := newTestSpawner(t)

	status, err := s.Spawn(process.Context{}, []string{"true"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	pid, running := status.IsRunning()
	if !running || pid == 0 {
		t.Fatalf("expected a running pid, got %v", status)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		t.Fatalf("FindProcess: %s", err)
	}
	if _, err := proc.Wait(); err != nil {
		t.Fatalf("Wait: %s", err)
	}
}
