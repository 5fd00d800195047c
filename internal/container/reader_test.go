package container

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/harrison/resscan/internal/models"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	name    string
	content string
}

var fixtureMembers = []member{
	{"META-INF/", ""},
	{"META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"},
	{"com/example/Foo.class", "\xca\xfe\xba\xbe foo"},
	{"com/example/res.txt", "hello"},
}

func buildZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range fixtureMembers {
		w, err := zw.Create(m.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(m.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildTar(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, m := range fixtureMembers {
		hdr := &tar.Header{Name: m.name, Mode: 0644, Size: int64(len(m.content)), Typeflag: tar.TypeReg}
		if m.name[len(m.name)-1] == '/' {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0755
			hdr.Size = 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(m.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func fixtureFs(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/c/app.jar", buildZip(t), 0644))
	require.NoError(t, afero.WriteFile(fsys, "/c/app.tar", buildTar(t), 0644))
	require.NoError(t, afero.WriteFile(fsys, "/c/app.tgz", gzipBytes(t, buildTar(t)), 0644))
	require.NoError(t, afero.WriteFile(fsys, "/c/notes.txt", []byte("just text"), 0644))
	for _, m := range fixtureMembers {
		if m.content == "" {
			require.NoError(t, fsys.MkdirAll("/c/tree/"+m.name, 0755))
			continue
		}
		require.NoError(t, fsys.MkdirAll("/c/tree/"+m.name[:bytes.LastIndexByte([]byte(m.name), '/')], 0755))
		require.NoError(t, afero.WriteFile(fsys, "/c/tree/"+m.name, []byte(m.content), 0644))
	}
	return fsys
}

func TestOpen_AllKinds(t *testing.T) {
	fsys := fixtureFs(t)

	tests := []struct {
		name string
		ref  models.ContainerRef
		want []string
	}{
		{
			name: "zip detected from magic bytes",
			ref:  models.ContainerRef{Name: "app", File: "/c/app.jar"},
			want: []string{"META-INF/", "META-INF/MANIFEST.MF", "com/example/Foo.class", "com/example/res.txt"},
		},
		{
			name: "tar detected from ustar header",
			ref:  models.ContainerRef{Name: "app", File: "/c/app.tar"},
			want: []string{"META-INF/", "META-INF/MANIFEST.MF", "com/example/Foo.class", "com/example/res.txt"},
		},
		{
			name: "gzip tar",
			ref:  models.ContainerRef{Name: "app", File: "/c/app.tgz"},
			want: []string{"META-INF/", "META-INF/MANIFEST.MF", "com/example/Foo.class", "com/example/res.txt"},
		},
		{
			name: "explicit tar kind",
			ref:  models.ContainerRef{Name: "app", File: "/c/app.tgz", Kind: models.KindTar},
			want: []string{"META-INF/", "META-INF/MANIFEST.MF", "com/example/Foo.class", "com/example/res.txt"},
		},
		{
			name: "directory",
			ref:  models.ContainerRef{Name: "tree", File: "/c/tree"},
			want: []string{"META-INF/", "META-INF/MANIFEST.MF", "com/", "com/example/", "com/example/Foo.class", "com/example/res.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Open(tt.ref, Options{Fs: fsys})
			require.NoError(t, err)
			defer r.Close()

			names, err := r.List()
			require.NoError(t, err)
			assert.Equal(t, tt.want, names)

			data, err := r.Read("com/example/res.txt")
			require.NoError(t, err)
			assert.Equal(t, "hello", string(data))
			r.Release(data)

			rc, err := r.Open("META-INF/MANIFEST.MF")
			require.NoError(t, err)
			streamed, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, "Manifest-Version: 1.0\n", string(streamed))

			_, err = r.Read("missing/Thing.class")
			assert.True(t, errors.Is(err, ErrNotExist), "got %v", err)

			_, err = r.Open("META-INF/")
			assert.Error(t, err)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	fsys := fixtureFs(t)

	_, err := Open(models.ContainerRef{Name: "txt", File: "/c/notes.txt"}, Options{Fs: fsys})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Open(models.ContainerRef{Name: "gone", File: "/c/gone.jar"}, Options{Fs: fsys})
	assert.Error(t, err)

	_, err = Open(models.ContainerRef{Name: "nofile"}, Options{Fs: fsys})
	assert.Error(t, err)

	_, err = Open(models.ContainerRef{Name: "dir", File: "/c/tree", Kind: models.KindZip}, Options{Fs: fsys})
	assert.Error(t, err)

	_, err = Open(models.ContainerRef{Name: "bad", File: "/c/notes.txt", Kind: "rar"}, Options{Fs: fsys})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestReader_ClosedReaderFails(t *testing.T) {
	fsys := fixtureFs(t)

	for _, file := range []string{"/c/app.jar", "/c/app.tar", "/c/tree"} {
		r, err := Open(models.ContainerRef{Name: "x", File: file}, Options{Fs: fsys})
		require.NoError(t, err)
		require.NoError(t, r.Close())
		require.NoError(t, r.Close(), "close must be idempotent for %s", file)

		_, err = r.List()
		assert.ErrorIs(t, err, ErrClosed, file)
		_, err = r.Read("com/example/res.txt")
		assert.ErrorIs(t, err, ErrClosed, file)
	}
}

func TestTarReader_StreamsAreIndependent(t *testing.T) {
	raw := buildTar(t)
	r, err := NewTarReader(bytes.NewReader(raw), nil)
	require.NoError(t, err)

	a, err := r.Open("com/example/Foo.class")
	require.NoError(t, err)
	b, err := r.Open("com/example/res.txt")
	require.NoError(t, err)

	bData, err := io.ReadAll(b)
	require.NoError(t, err)
	aData, err := io.ReadAll(a)
	require.NoError(t, err)

	assert.Equal(t, "hello", string(bData))
	assert.Equal(t, "\xca\xfe\xba\xbe foo", string(aData))
}

func TestTarReader_InflateLimit(t *testing.T) {
	raw := buildTar(t)
	compressed := gzipBytes(t, raw)

	saved := maxInflatedSize
	defer func() { maxInflatedSize = saved }()

	maxInflatedSize = int64(len(raw))
	r, err := NewTarReader(bytes.NewReader(compressed), nil)
	require.NoError(t, err, "archive exactly at the limit is accepted")
	require.NoError(t, r.Close())

	maxInflatedSize = int64(len(raw)) - 1
	_, err = NewTarReader(bytes.NewReader(compressed), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDirReader_ResolveStaysInsideRoot(t *testing.T) {
	fsys := fixtureFs(t)
	require.NoError(t, afero.WriteFile(fsys, "/c/secret.txt", []byte("secret"), 0644))

	r, err := NewDirReader(fsys, "/c/tree", nil)
	require.NoError(t, err)

	_, err = r.Read("../secret.txt")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestParseS3Location(t *testing.T) {
	tests := []struct {
		in         string
		bucket     string
		prefix     string
		wantErrMsg string
	}{
		{in: "s3://bucket", bucket: "bucket"},
		{in: "s3://bucket/", bucket: "bucket"},
		{in: "s3://bucket/lib/classes", bucket: "bucket", prefix: "lib/classes/"},
		{in: "s3://bucket/lib/classes/", bucket: "bucket", prefix: "lib/classes/"},
		{in: "s3:///prefix", wantErrMsg: "bucket is required"},
		{in: "file:///tmp", wantErrMsg: "not an s3 location"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, prefix, err := ParseS3Location(tt.in)
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.prefix, prefix)
		})
	}
}

func TestNewS3Reader_RequiresCredentials(t *testing.T) {
	_, err := NewS3Reader(S3Config{}, "s3://bucket")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is required")

	_, err = NewS3Reader(S3Config{Endpoint: "localhost:9000"}, "s3://bucket")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access key and secret key are required")
}
