package llm

import (
	"context"
	"testing"
	"time"
)

func TestCallContextCarriesDeadline(t *testing.T) {
	ctx, cancel := callContext(context.Background(), EmbedTimeout)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("call context has no deadline")
	}
	if remaining := time.Until(deadline); remaining > EmbedTimeout {
		t.Errorf("deadline %v out, beyond the per-call bound %v", remaining, EmbedTimeout)
	}
}

func TestCallContextKeepsEarlierParentDeadline(t *testing.T) {
	parent, cancelParent := context.WithTimeout(context.Background(), time.Second)
	defer cancelParent()

	ctx, cancel := callContext(parent, GenerateTimeout)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("call context has no deadline")
	}
	if time.Until(deadline) > 2*time.Second {
		t.Errorf("parent deadline not honored, %v remaining", time.Until(deadline))
	}
}
