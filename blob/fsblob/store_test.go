package fsblob_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tributo/courier/blob"
	"github.com/tributo/courier/blob/fsblob"
)

func TestPutGetRoundtrip(t *testing.T) {
	s, err := fsblob.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ref, err := s.Put(context.Background(), []byte("<Invoice/>"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref == "" {
		t.Fatal("Put returned empty ref")
	}

	data, err := s.Get(context.Background(), ref)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "<Invoice/>" {
		t.Errorf("Get = %q, want original bytes", data)
	}
}

func TestGetMissingRef(t *testing.T) {
	s, err := fsblob.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = s.Get(context.Background(), "blob_nosuchref")
	if !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, err := fsblob.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ref, err := s.Put(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := s.Delete(context.Background(), ref); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(context.Background(), ref); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := s.Get(context.Background(), ref); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
}

func TestRefCannotEscapeRoot(t *testing.T) {
	dir := t.TempDir()
	s, err := fsblob.New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = s.Get(context.Background(), "../../etc/passwd")
	if !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Get with traversal ref = %v, want ErrNotFound", err)
	}
}
