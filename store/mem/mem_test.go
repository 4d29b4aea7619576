package mem

import (
	"context"
	"testing"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/testutil"
)

func TestStore(t *testing.T) {
	testutil.All(context.Background(), t, func() gitblobs.ExtStore { return New() })
}
