package mem

import (
	"context"
	"testing"

	"github.com/bobg/lds"
	"github.com/bobg/lds/testutil"
)

func TestStore(t *testing.T) {
	testutil.ReadWrite(context.Background(), t, New(), testutil.Data(t))
}

func TestAllRefs(t *testing.T) {
	testutil.AllRefs(context.Background(), t, func() lds.Store { return New() })
}

func TestHeads(t *testing.T) {
	testutil.Heads(context.Background(), t, New())
}

func TestDelete(t *testing.T) {
	testutil.Delete(context.Background(), t, New())
}
