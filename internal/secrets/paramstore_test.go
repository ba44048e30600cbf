package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	out    *ssm.GetParameterOutput
	err    error
	lastIn *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.out, f.err
}

func TestGetParameterDecrypts(t *testing.T) {
	api := &fakeSSM{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name:  aws.String("/bakery/bot-token"),
		Value: aws.String(" 123:abc\n"),
		Type:  types.ParameterTypeSecureString,
	}}}
	p, err := NewParamStore(api)
	require.NoError(t, err)

	v, err := p.GetParameter(context.Background(), " /bakery/bot-token ")
	require.NoError(t, err)
	require.Equal(t, "123:abc", v)
	require.Equal(t, "/bakery/bot-token", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameterErrors(t *testing.T) {
	p, err := NewParamStore(&fakeSSM{err: errors.New("AccessDeniedException")})
	require.NoError(t, err)
	_, err = p.GetParameter(context.Background(), "x")
	require.ErrorContains(t, err, "AccessDeniedException")

	p, err = NewParamStore(&fakeSSM{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{}}})
	require.NoError(t, err)
	_, err = p.GetParameter(context.Background(), "x")
	require.ErrorContains(t, err, "no value")

	_, err = p.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")

	_, err = (&ParamStore{}).GetParameter(context.Background(), "x")
	require.ErrorContains(t, err, "not initialized")

	_, err = NewParamStore(nil)
	require.Error(t, err)
}
