package logging

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"

	"github.com/bobg/lds/store/mem"
	"github.com/bobg/lds/testutil"
)

func TestStore(t *testing.T) {
	old := log.Writer()
	defer log.SetOutput(old)
	buf := new(bytes.Buffer)
	log.SetOutput(buf)

	s := New(mem.New())
	testutil.Heads(context.Background(), t, s)

	out := buf.String()
	for _, want := range []string{"SwapHead(", "GetHead(", "ListHeads, start="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output lacks %q", want)
		}
	}
}

func TestDelete(t *testing.T) {
	old := log.Writer()
	defer log.SetOutput(old)
	buf := new(bytes.Buffer)
	log.SetOutput(buf)

	testutil.Delete(context.Background(), t, New(mem.New()))

	if !strings.Contains(buf.String(), "Delete ") {
		t.Error("log output lacks Delete")
	}
}
