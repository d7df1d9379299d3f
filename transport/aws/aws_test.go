package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/fedstore/transport"
)

type stubs struct {
	loadOpts  int
	accountID string
	region    string
	pubCfg    sns.PublisherConfig
}

func stubAWS(t *testing.T, loadErr, pubErr error) *stubs {
	t.Helper()
	origLoader, origResolver, origPub := DefaultConfigLoader, TopicResolverFactory, PublisherFactory
	t.Cleanup(func() {
		DefaultConfigLoader, TopicResolverFactory, PublisherFactory = origLoader, origResolver, origPub
	})

	s := &stubs{}
	DefaultConfigLoader = func(_ context.Context, opts ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		s.loadOpts = len(opts)
		if loadErr != nil {
			return aws.Config{}, loadErr
		}
		return aws.Config{Region: "eu-west-1"}, nil
	}
	TopicResolverFactory = func(accountID, region string) (*sns.GenerateArnTopicResolver, error) {
		s.accountID, s.region = accountID, region
		return &sns.GenerateArnTopicResolver{}, nil
	}
	PublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		s.pubCfg = cfg
		if pubErr != nil {
			return nil, pubErr
		}
		return gochannel.NewGoChannel(gochannel.Config{}, logger), nil
	}
	return s
}

func TestRegistered(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))
}

func TestBuild(t *testing.T) {
	s := stubAWS(t, nil, nil)

	pub, err := Build(context.Background(), transport.StaticConfig{
		AWSRegion:          "us-east-1",
		AWSAccountID:       "123456789012",
		AWSAccessKeyID:     "AKIA",
		AWSSecretAccessKey: "secret",
	}, watermill.NopLogger{})
	require.NoError(t, err)
	require.NotNil(t, pub)

	assert.Equal(t, 2, s.loadOpts)
	assert.Equal(t, "123456789012", s.accountID)
	assert.Equal(t, "us-east-1", s.region)
	assert.Equal(t, "us-east-1", s.pubCfg.AWSConfig.Region)
	assert.Empty(t, s.pubCfg.OptFns)
}

func TestBuildFallsBackToLoadedRegion(t *testing.T) {
	s := stubAWS(t, nil, nil)

	_, err := Build(context.Background(), transport.StaticConfig{AWSAccountID: "123456789012"}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Zero(t, s.loadOpts)
	assert.Equal(t, "eu-west-1", s.region)
}

func TestBuildWithLocalstackEndpoint(t *testing.T) {
	s := stubAWS(t, nil, nil)

	_, err := Build(context.Background(), transport.StaticConfig{
		AWSRegion:   "us-east-1",
		AWSEndpoint: "http://localhost:4566",
	}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, localstackAccountID, s.accountID)
	assert.Len(t, s.pubCfg.OptFns, 1)
}

func TestBuildErrors(t *testing.T) {
	t.Run("config loader", func(t *testing.T) {
		stubAWS(t, errors.New("config error"), nil)
		_, err := Build(context.Background(), transport.StaticConfig{AWSRegion: "us-east-1"}, watermill.NopLogger{})
		assert.EqualError(t, err, "config error")
	})

	t.Run("publisher factory", func(t *testing.T) {
		stubAWS(t, nil, errors.New("publisher error"))
		_, err := Build(context.Background(), transport.StaticConfig{AWSRegion: "us-east-1"}, watermill.NopLogger{})
		assert.EqualError(t, err, "publisher error")
	})

	t.Run("bad endpoint", func(t *testing.T) {
		stubAWS(t, nil, nil)
		_, err := Build(context.Background(), transport.StaticConfig{AWSRegion: "us-east-1", AWSEndpoint: "localhost"}, watermill.NopLogger{})
		assert.ErrorContains(t, err, "failed to parse AWS endpoint")
	})
}

func TestResolveAccountAndRegion(t *testing.T) {
	logger := watermill.NopLogger{}

	account, region := resolveAccountAndRegion(transport.StaticConfig{AWSAccountID: `"123456789012"`}, logger, "eu-west-1")
	assert.Equal(t, "123456789012", account)
	assert.Equal(t, "eu-west-1", region)

	account, _ = resolveAccountAndRegion(transport.StaticConfig{AWSAccountID: "42", AWSEndpoint: "http://localhost:4566"}, logger, "")
	assert.Equal(t, localstackAccountID, account)

	account, _ = resolveAccountAndRegion(transport.StaticConfig{AWSAccountID: "42"}, logger, "")
	assert.Equal(t, "42", account)
}

func TestStaticCredentialsProvider(t *testing.T) {
	creds, err := staticCredentialsProvider("id", "secret").Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}
