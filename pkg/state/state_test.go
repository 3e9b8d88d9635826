package state

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/app-sre/secret-expiration-notifier/pkg/aws/mock"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/golang/mock/gomock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

type testValue struct {
	Name string
}

func setupS3State(t *testing.T) (*S3State, *mock.MockClient) {
	viper.GetViper().Set("state_s3", map[string]interface{}{"bucket": "test-bucket"})
	ctrl := gomock.NewController(t)
	client := mock.NewMockClient(ctrl)
	return NewS3State("reports", "test", client), client
}

func TestS3StateAdd(t *testing.T) {
	s, client := setupS3State(t)

	client.EXPECT().PutObject(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			assert.Equal(t, "test-bucket", *params.Bucket)
			assert.Equal(t, "reports/test/foo", *params.Key)
			body, err := io.ReadAll(params.Body)
			assert.NoError(t, err)
			assert.JSONEq(t, `{"Name": "bar"}`, string(body))
			return &s3.PutObjectOutput{}, nil
		})

	assert.NoError(t, s.Add(context.Background(), "foo", testValue{Name: "bar"}))
}

func TestS3StateGet(t *testing.T) {
	s, client := setupS3State(t)

	client.EXPECT().GetObject(gomock.Any(), gomock.Any()).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(`{"Name": "bar"}`)),
	}, nil)

	var v testValue
	assert.NoError(t, s.Get(context.Background(), "foo", &v))
	assert.Equal(t, "bar", v.Name)
}

func TestS3StateExists(t *testing.T) {
	s, client := setupS3State(t)

	notFound := &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusNotFound}},
		},
	}
	gomock.InOrder(
		client.EXPECT().HeadObject(gomock.Any(), gomock.Any()).Return(&s3.HeadObjectOutput{}, nil),
		client.EXPECT().HeadObject(gomock.Any(), gomock.Any()).Return(nil, notFound),
	)

	exists, err := s.Exists(context.Background(), "foo")
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.Exists(context.Background(), "foo")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestS3StateRm(t *testing.T) {
	s, client := setupS3State(t)

	client.EXPECT().DeleteObject(gomock.Any(), gomock.Any()).Return(&s3.DeleteObjectOutput{}, nil)
	assert.NoError(t, s.Rm(context.Background(), "foo"))
}
