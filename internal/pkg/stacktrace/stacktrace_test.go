package stacktrace

import "testing"

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 1 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/phoneauth/internal/pkg/goroutine.(*Manager).recover(...)
	/app/internal/pkg/goroutine/goroutine.go:88 +0x3a
main.main()
	/app/main.go:10 +0x1d
`)

	paths := InternalPaths(stack)

	if len(paths) != 1 || paths[0] != "internal/pkg/goroutine/goroutine.go:88" {
		t.Fatalf("InternalPaths() = %v", paths)
	}
}
