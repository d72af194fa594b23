package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/storefront/internal/config"
	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/pkg/crypto"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(params.Body)
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestComputeKey(t *testing.T) {
	hash := crypto.ComputeSHA256([]byte("x"))
	key := ComputeKey(DefaultKeyConfig(), hash, "png")
	require.Equal(t, "products/"+hash[0:2]+"/"+hash[2:4]+"/"+hash+".png", key)

	require.Equal(t, "products/ab.gif", ComputeKey(DefaultKeyConfig(), "ab", "gif"))
}

func TestDetectImage(t *testing.T) {
	info, err := DetectImage(pngBytes(t))
	require.NoError(t, err)
	require.Equal(t, "image/png", info.ContentType)
	require.Equal(t, 4, info.Width)
	require.Equal(t, 3, info.Height)

	_, err = DetectImage([]byte("definitely not an image"))
	require.ErrorIs(t, err, domain.ErrUnsupportedImage)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestS3ImageStore_Put(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3ImageStore(putter, config.ImagesConfig{
		Bucket:        "shop-images",
		PublicBaseURL: "https://cdn.example.com/",
		MaxSize:       1 << 20,
	}, zerolog.Nop())

	data := pngBytes(t)
	url, err := store.Put(context.Background(), data)
	require.NoError(t, err)

	hash := crypto.ComputeSHA256(data)
	require.True(t, strings.HasPrefix(url, "https://cdn.example.com/products/"))
	require.True(t, strings.HasSuffix(url, hash+".png"))

	require.Len(t, putter.inputs, 1)
	require.Equal(t, "shop-images", aws.ToString(putter.inputs[0].Bucket))
	require.Equal(t, "image/png", aws.ToString(putter.inputs[0].ContentType))
	require.Equal(t, data, putter.bodies[0])

	// Same bytes, same key.
	again, err := store.Put(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, url, again)
}

func TestS3ImageStore_Rejects(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3ImageStore(putter, config.ImagesConfig{Bucket: "b", PublicBaseURL: "https://cdn", MaxSize: 10}, zerolog.Nop())

	_, err := store.Put(context.Background(), pngBytes(t))
	require.ErrorIs(t, err, domain.ErrImageTooLarge)

	store.maxSize = 0
	_, err = store.Put(context.Background(), []byte("text"))
	require.ErrorIs(t, err, domain.ErrUnsupportedImage)
	require.Empty(t, putter.inputs)

	putter.err = errors.New("connection reset")
	_, err = store.Put(context.Background(), pngBytes(t))
	require.ErrorIs(t, err, domain.ErrUnavailable)
}
