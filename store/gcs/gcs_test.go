package gcs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/testutil"
)

const (
	credsVar = "GITBLOBS_GCS_TESTING_CREDS"
	projVar  = "GITBLOBS_GCS_TESTING_PROJECT"
)

func TestStore(t *testing.T) {
	var (
		creds     = os.Getenv(credsVar)
		projectID = os.Getenv(projVar)
	)
	if creds == "" || projectID == "" {
		t.Skipf("to run TestStore, set %s to the name of a credentials file and %s to a project ID", credsVar, projVar)
	}

	ctx := context.Background()

	client, err := storage.NewClient(ctx, option.WithCredentialsFile(creds))
	if err != nil {
		t.Fatal(err)
	}

	// Each call gets its own bucket so that every store starts out empty.
	testutil.All(ctx, t, func() gitblobs.ExtStore {
		var r [30]byte
		if _, err := rand.Read(r[:]); err != nil {
			t.Fatal(err)
		}
		bucketName := hex.EncodeToString(r[:])

		t.Logf("creating bucket %s in project %s", bucketName, projectID)

		bucket := client.Bucket(bucketName)
		if err := bucket.Create(ctx, projectID, nil); err != nil {
			t.Fatal(err)
		}
		s := New(bucket)
		t.Cleanup(func() {
			if err := s.clear(ctx); err != nil {
				t.Log(err)
			}
			bucket.Delete(ctx)
		})
		return s
	})
}

func TestObjName(t *testing.T) {
	h := gitblobs.NewBlob([]byte("x")).Hash
	if got, want := objName(h), "o:"+string(h); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got, want := refName("refs/heads/main"), "r:refs/heads/main"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
