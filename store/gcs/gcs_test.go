package gcs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"reflect"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/bobg/lds/testutil"
)

func TestEachHexPrefix(t *testing.T) {
	want := []string{
		"e67b", "e67c", "e67d", "e67e", "e67f",
		"e68", "e69", "e6a", "e6b", "e6c", "e6d", "e6e", "e6f",
		"e7", "e8", "e9", "ea", "eb", "ec", "ed", "ee", "ef",
		"f",
	}
	var got []string
	err := eachHexPrefix("e67a", false, func(prefix string) error {
		got = append(got, prefix)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestHeadObjName(t *testing.T) {
	const name = "https://example.org/people/alice#id"
	got, err := nameFromHeadObjName(headObjName(name))
	if err != nil {
		t.Fatal(err)
	}
	if got != name {
		t.Errorf("got %s, want %s", got, name)
	}

	// Object-name order must agree with name order.
	if headObjName("https://example.org/a") >= headObjName("https://example.org/b") {
		t.Error("head object names are out of order")
	}
}

const (
	credsVar = "LDS_GCS_TESTING_CREDS"
	projVar  = "LDS_GCS_TESTING_PROJECT"
)

func TestStore(t *testing.T) {
	withBucket(t, func(ctx context.Context, bucket *storage.BucketHandle) {
		testutil.ReadWrite(ctx, t, New(bucket), testutil.Data(t))
	})
}

func TestHeads(t *testing.T) {
	withBucket(t, func(ctx context.Context, bucket *storage.BucketHandle) {
		testutil.Heads(ctx, t, New(bucket))
	})
}

func TestDelete(t *testing.T) {
	withBucket(t, func(ctx context.Context, bucket *storage.BucketHandle) {
		testutil.Delete(ctx, t, New(bucket))
	})
}

func withBucket(t *testing.T, f func(context.Context, *storage.BucketHandle)) {
	var (
		creds     = os.Getenv(credsVar)
		projectID = os.Getenv(projVar)
	)
	if creds == "" || projectID == "" {
		t.Skipf("to run %s, set %s to the name of a credentials file and %s to a project ID", t.Name(), credsVar, projVar)
	}

	var r [30]byte
	_, err := rand.Read(r[:])
	if err != nil {
		t.Fatal(err)
	}
	bucketName := hex.EncodeToString(r[:])

	ctx := context.Background()

	client, err := storage.NewClient(ctx, option.WithCredentialsFile(creds))
	if err != nil {
		t.Fatal(err)
	}

	t.Logf("creating bucket %s in project %s", bucketName, projectID)

	bucket := client.Bucket(bucketName)
	err = bucket.Create(ctx, projectID, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer bucket.Delete(ctx)

	f(ctx, bucket)
}
