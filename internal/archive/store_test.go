package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestLocalStore_SaveAndOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archives")
	store := NewLocalStore(dir, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a.jsonl.gz", []byte("first")))
	require.NoError(t, store.Save(ctx, "a.jsonl.gz", []byte("second")))

	rc, err := store.Open(ctx, "a.jsonl.gz")
	require.NoError(t, err)
	assert.Equal(t, "second", readAll(t, rc))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be renamed away")
}

func TestLocalStore_Errors(t *testing.T) {
	store := NewLocalStore(t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	_, err := store.Open(ctx, "missing.jsonl.gz")
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.ErrorIs(t, store.Save(ctx, "../escape", nil), ErrInvalidName)
}

// fakeS3 records objects in memory.
type fakeS3 struct {
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Store_UsesPrefix(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}}
	store := NewS3StoreWithClient(client, "shop-archive", "archives/", zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "orders.jsonl.gz", []byte("payload")))
	assert.Contains(t, client.objects, "shop-archive/archives/orders.jsonl.gz")

	rc, err := store.Open(ctx, "orders.jsonl.gz")
	require.NoError(t, err)
	assert.Equal(t, "payload", readAll(t, rc))
}

func TestS3Store_WrapsClientErrors(t *testing.T) {
	store := NewS3StoreWithClient(&fakeS3{err: errors.New("access denied")}, "b", "", zerolog.Nop())

	err := store.Save(context.Background(), "x.jsonl.gz", []byte("data"))
	assert.ErrorContains(t, err, "bucket=b, key=x.jsonl.gz")

	_, err = store.Open(context.Background(), "x.jsonl.gz")
	assert.ErrorContains(t, err, "access denied")
}

// mockStore lets each test decide how a store behaves.
type mockStore struct {
	saveFunc func(ctx context.Context, name string, data []byte) error
	openFunc func(ctx context.Context, name string) (io.ReadCloser, error)
}

func (m *mockStore) Save(ctx context.Context, name string, data []byte) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, name, data)
	}
	return errors.New("not implemented")
}

func (m *mockStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if m.openFunc != nil {
		return m.openFunc(ctx, name)
	}
	return nil, errors.New("not implemented")
}

func openReturning(s string) func(context.Context, string) (io.ReadCloser, error) {
	return func(context.Context, string) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(s))), nil
	}
}

func TestFallbackStore_PrimarySuccess(t *testing.T) {
	primary := &mockStore{
		saveFunc: func(context.Context, string, []byte) error { return nil },
		openFunc: openReturning("remote"),
	}
	secondary := &mockStore{
		saveFunc: func(context.Context, string, []byte) error {
			t.Error("secondary should not be used when primary succeeds")
			return nil
		},
		openFunc: func(context.Context, string) (io.ReadCloser, error) {
			t.Error("secondary should not be used when primary succeeds")
			return nil, errors.New("unexpected")
		},
	}
	store := NewFallbackStore(primary, secondary, true, zerolog.Nop())

	require.NoError(t, store.Save(context.Background(), "a", []byte("x")))
	rc, err := store.Open(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "remote", readAll(t, rc))
}

func TestFallbackStore_PrimaryFailsUsesSecondary(t *testing.T) {
	var savedLocally bool
	primary := &mockStore{
		saveFunc: func(context.Context, string, []byte) error { return errors.New("S3 unavailable") },
		openFunc: func(context.Context, string) (io.ReadCloser, error) { return nil, errors.New("S3 unavailable") },
	}
	secondary := &mockStore{
		saveFunc: func(context.Context, string, []byte) error { savedLocally = true; return nil },
		openFunc: openReturning("local"),
	}
	store := NewFallbackStore(primary, secondary, true, zerolog.Nop())

	require.NoError(t, store.Save(context.Background(), "a", []byte("x")))
	assert.True(t, savedLocally)

	rc, err := store.Open(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "local", readAll(t, rc))
}

func TestFallbackStore_DisabledOrNilPrimary(t *testing.T) {
	primary := &mockStore{
		openFunc: func(context.Context, string) (io.ReadCloser, error) {
			t.Error("primary should not be used when disabled")
			return nil, errors.New("unexpected")
		},
	}
	secondary := &mockStore{openFunc: openReturning("local")}

	tests := []struct {
		name  string
		store Store
	}{
		{"disabled", NewFallbackStore(primary, secondary, false, zerolog.Nop())},
		{"nil primary", NewFallbackStore(nil, secondary, true, zerolog.Nop())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := tt.store.Open(context.Background(), "a")
			require.NoError(t, err)
			assert.Equal(t, "local", readAll(t, rc))
		})
	}
}

func TestFallbackStore_BothFail(t *testing.T) {
	failing := &mockStore{
		openFunc: func(context.Context, string) (io.ReadCloser, error) { return nil, errors.New("gone") },
	}
	store := NewFallbackStore(failing, failing, true, zerolog.Nop())

	_, err := store.Open(context.Background(), "a")
	assert.ErrorContains(t, err, "gone")
}
