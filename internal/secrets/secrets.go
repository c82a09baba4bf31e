// Package secrets reads credentials from a secret parameter store.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ErrEmptySecret is returned when a parameter exists but has a blank value.
var ErrEmptySecret = errors.New("parameter store returned an empty value for a required secret")

// Provider returns decrypted parameter values by name.
type Provider interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// SSMProvider reads SecureString parameters from AWS Systems Manager.
type SSMProvider struct {
	client *ssm.Client
}

// NewSSMProvider creates a provider from an AWS config.
func NewSSMProvider(cfg aws.Config, endpoint string) *SSMProvider {
	client := ssm.NewFromConfig(cfg, func(o *ssm.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &SSMProvider{client: client}
}

// GetParameter fetches a parameter with decryption.
func (p *SSMProvider) GetParameter(ctx context.Context, name string) (string, error) {
	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil {
		return "", fmt.Errorf("get parameter %s: %w", name, ErrEmptySecret)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// StaticProvider serves parameters from a fixed map, for local runs and tests.
type StaticProvider map[string]string

// GetParameter returns the named value.
func (p StaticProvider) GetParameter(_ context.Context, name string) (string, error) {
	v, ok := p[name]
	if !ok {
		return "", fmt.Errorf("get parameter %s: not found", name)
	}
	return v, nil
}

// SFTPCredentials is the key material used to open the SFTP session.
type SFTPCredentials struct {
	PrivateKey []byte
	Passphrase []byte
}

// LoadSFTPCredentials fetches the private key and passphrase parameters.
// Blank values are rejected with ErrEmptySecret.
func LoadSFTPCredentials(ctx context.Context, p Provider, privateKeyParam, passphraseParam string) (SFTPCredentials, error) {
	key, err := p.GetParameter(ctx, privateKeyParam)
	if err != nil {
		return SFTPCredentials{}, err
	}
	pass, err := p.GetParameter(ctx, passphraseParam)
	if err != nil {
		return SFTPCredentials{}, err
	}
	if strings.TrimSpace(key) == "" || strings.TrimSpace(pass) == "" {
		return SFTPCredentials{}, ErrEmptySecret
	}
	return SFTPCredentials{PrivateKey: []byte(key), Passphrase: []byte(pass)}, nil
}
