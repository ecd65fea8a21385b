package service

import (
	"context"
	"errors"
	"testing"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	txt      map[string][]string
	cname    map[string]string
	txtErr   error
	cnameErr error
}

func (f *fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	if f.txtErr != nil {
		return nil, f.txtErr
	}
	return f.txt[name], nil
}

func (f *fakeResolver) LookupCNAME(_ context.Context, host string) (string, error) {
	if f.cnameErr != nil {
		return "", f.cnameErr
	}
	return f.cname[host], nil
}

func TestCheckDNSTXT(t *testing.T) {
	t.Parallel()

	d := domain.Domain{
		Name:               "corvid.example",
		VerificationToken:  "tok123",
		VerificationMethod: domain.VerifyMethodTXT,
	}

	t.Run("matching record verifies", func(t *testing.T) {
		svc := &DomainService{Resolver: &fakeResolver{txt: map[string][]string{
			"_email-verify.corvid.example": {"unrelated", " email-verify=tok123 "},
		}}}
		require.True(t, svc.checkDNS(context.Background(), d))
	})

	t.Run("wrong token fails", func(t *testing.T) {
		svc := &DomainService{Resolver: &fakeResolver{txt: map[string][]string{
			"_email-verify.corvid.example": {"email-verify=other"},
		}}}
		require.False(t, svc.checkDNS(context.Background(), d))
	})

	t.Run("lookup error means not verified", func(t *testing.T) {
		svc := &DomainService{Resolver: &fakeResolver{txtErr: errors.New("NXDOMAIN")}}
		require.False(t, svc.checkDNS(context.Background(), d))
	})
}

func TestCheckDNSCNAME(t *testing.T) {
	t.Parallel()

	d := domain.Domain{
		Name:               "corvid.example",
		VerificationToken:  "tok123",
		VerificationMethod: domain.VerifyMethodCNAME,
	}

	t.Run("matching target verifies", func(t *testing.T) {
		svc := &DomainService{
			Resolver: &fakeResolver{cname: map[string]string{
				"_email-verify.corvid.example": "tok123.verify.corvidmail.com.",
			}},
			CNAMETarget: "verify.corvidmail.com.",
		}
		require.True(t, svc.checkDNS(context.Background(), d))
	})

	t.Run("resolver target without trailing dot still verifies", func(t *testing.T) {
		svc := &DomainService{
			Resolver: &fakeResolver{cname: map[string]string{
				"_email-verify.corvid.example": "tok123.verify.corvidmail.com",
			}},
			CNAMETarget: "verify.corvidmail.com.",
		}
		require.True(t, svc.checkDNS(context.Background(), d))
	})

	t.Run("wrong target fails", func(t *testing.T) {
		svc := &DomainService{
			Resolver: &fakeResolver{cname: map[string]string{
				"_email-verify.corvid.example": "other.verify.corvidmail.com.",
			}},
			CNAMETarget: "verify.corvidmail.com.",
		}
		require.False(t, svc.checkDNS(context.Background(), d))
	})
}

func TestVerificationInstructions(t *testing.T) {
	t.Parallel()

	svc := &DomainService{CNAMETarget: "verify.corvidmail.com."}

	t.Run("txt", func(t *testing.T) {
		got := svc.instructions(domain.Domain{
			Name:               "corvid.example",
			VerificationToken:  "tok123",
			VerificationMethod: domain.VerifyMethodTXT,
		})
		require.Equal(t, domain.VerifyMethodTXT, got.Method)
		require.Equal(t, "_email-verify.corvid.example", got.Record)
		require.Equal(t, "email-verify=tok123", got.Value)
	})

	t.Run("cname", func(t *testing.T) {
		got := svc.instructions(domain.Domain{
			Name:               "corvid.example",
			VerificationToken:  "tok123",
			VerificationMethod: domain.VerifyMethodCNAME,
		})
		require.Equal(t, domain.VerifyMethodCNAME, got.Method)
		require.Equal(t, "_email-verify.corvid.example", got.Record)
		require.Equal(t, "tok123.verify.corvidmail.com.", got.Value)
	})
}
