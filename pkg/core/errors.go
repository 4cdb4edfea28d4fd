package core

import (
	"fmt"
	"io"
)

// PanicError is a panic recovered from a policy, an environment or an
// algorithm hook. Stack is the stack of the panicking goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

func (p PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Format prints the stack of the panic with %+v
func (p PanicError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			io.WriteString(s, p.Error())
			io.WriteString(s, "\n")
			s.Write(p.Stack)
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, p.Error())
	case 'q':
		fmt.Fprintf(s, "%q", p.Error())
	}
}
