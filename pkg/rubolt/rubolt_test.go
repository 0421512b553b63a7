package rubolt

import (
	"bytes"
	"testing"
)

func TestRunAccumulatesState(t *testing.T) {
	var out bytes.Buffer
	eng := New(&out)

	if _, err := eng.Run("let x = 2"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	val, err := eng.Run("x * 21")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if val.String() != "42" {
		t.Fatalf("result = %s, want 42", val.String())
	}
}

func TestRegisterModule(t *testing.T) {
	var out bytes.Buffer
	eng := New(&out)

	eng.RegisterModule("host", []Export{
		{Name: "greet", Fn: func(args []Value) (Value, *Exception) {
			return String("hello from go"), nil
		}},
	})

	if _, err := eng.Run(`import "host"` + "\nprint(host.greet())"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "hello from go\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestNativeErrorCatchable(t *testing.T) {
	var out bytes.Buffer
	eng := New(&out)

	eng.RegisterModule("host", []Export{
		{Name: "fail", Fn: func(args []Value) (Value, *Exception) {
			return nil, Errorf("IOError", "device gone")
		}},
	})

	_, err := eng.Run(`
import "host"
try {
    host.fail()
} catch IOError (e) {
    print(e.message)
}
`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "device gone\n" {
		t.Fatalf("output = %q", out.String())
	}
}
