package memory

import (
	"testing"

	"github.com/parleyflow/parley/pkg/ports"
)

func TestSessionStoreContract(t *testing.T) {
	ports.RunSessionStoreContract(t, NewSessionStore())
}

func TestFlowStoreContract(t *testing.T) {
	ports.RunFlowStoreContract(t, NewFlowStore())
}
