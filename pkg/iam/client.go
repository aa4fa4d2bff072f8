package iam

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/rotisserie/eris"
)

// PrincipalKind distinguishes the two principal types the browser shows.
type PrincipalKind int

const (
	KindUser PrincipalKind = iota
	KindRole
)

// InlinePolicy is a policy embedded in a user or role.
type InlinePolicy struct {
	Name     string
	Document string
}

// AttachedPolicy is a managed policy attached to a user or role. Its
// document is fetched separately through the default policy version.
type AttachedPolicy struct {
	Name string
	ARN  string
}

// Client is the IAM surface the tree needs. The real implementation wraps
// the AWS SDK; tests inject fakes.
type Client interface {
	Users(ctx context.Context) ([]string, error)
	Roles(ctx context.Context) ([]string, error)
	InlinePolicies(ctx context.Context, kind PrincipalKind, principal string) ([]InlinePolicy, error)
	AttachedPolicies(ctx context.Context, kind PrincipalKind, principal string) ([]AttachedPolicy, error)
	PolicyDocument(ctx context.Context, arn string) (string, error)
}

// Dialer opens a Client for the given profile.
type Dialer func(ctx context.Context, profile string) (Client, error)

// SDKClient implements Client on top of aws-sdk-go-v2.
type SDKClient struct {
	api *iam.Client
}

var _ Client = (*SDKClient)(nil)

// Dial builds an SDKClient using the shared configuration of the given
// profile.
func Dial(ctx context.Context, profile string) (Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithSharedConfigProfile(profile))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load the AWS config for profile %s", profile)
	}

	return &SDKClient{api: iam.NewFromConfig(cfg)}, nil
}

func (c *SDKClient) Users(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	pager := iam.NewListUsersPaginator(c.api, &iam.ListUsersInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "failed to list users")
		}

		for _, user := range page.Users {
			names = append(names, aws.ToString(user.UserName))
		}
	}

	return names, nil
}

func (c *SDKClient) Roles(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	pager := iam.NewListRolesPaginator(c.api, &iam.ListRolesInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "failed to list roles")
		}

		for _, role := range page.Roles {
			names = append(names, aws.ToString(role.RoleName))
		}
	}

	return names, nil
}

func (c *SDKClient) InlinePolicies(ctx context.Context, kind PrincipalKind, principal string) ([]InlinePolicy, error) {
	names := make([]string, 0)
	switch kind {
	case KindUser:
		pager := iam.NewListUserPoliciesPaginator(c.api, &iam.ListUserPoliciesInput{
			UserName: aws.String(principal),
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, eris.Wrapf(err, "failed to list inline policies of user %s", principal)
			}
			names = append(names, page.PolicyNames...)
		}
	case KindRole:
		pager := iam.NewListRolePoliciesPaginator(c.api, &iam.ListRolePoliciesInput{
			RoleName: aws.String(principal),
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, eris.Wrapf(err, "failed to list inline policies of role %s", principal)
			}
			names = append(names, page.PolicyNames...)
		}
	}

	policies := make([]InlinePolicy, 0, len(names))
	for _, name := range names {
		var raw *string
		switch kind {
		case KindUser:
			result, err := c.api.GetUserPolicy(ctx, &iam.GetUserPolicyInput{
				UserName:   aws.String(principal),
				PolicyName: aws.String(name),
			})
			if err != nil {
				return nil, eris.Wrapf(err, "failed to fetch policy %s of user %s", name, principal)
			}
			raw = result.PolicyDocument
		case KindRole:
			result, err := c.api.GetRolePolicy(ctx, &iam.GetRolePolicyInput{
				RoleName:   aws.String(principal),
				PolicyName: aws.String(name),
			})
			if err != nil {
				return nil, eris.Wrapf(err, "failed to fetch policy %s of role %s", name, principal)
			}
			raw = result.PolicyDocument
		}

		document, err := DecodeDocument(aws.ToString(raw))
		if err != nil {
			return nil, eris.Wrapf(err, "failed to decode policy %s", name)
		}

		policies = append(policies, InlinePolicy{Name: name, Document: document})
	}

	return policies, nil
}

func (c *SDKClient) AttachedPolicies(ctx context.Context, kind PrincipalKind, principal string) ([]AttachedPolicy, error) {
	policies := make([]AttachedPolicy, 0)

	switch kind {
	case KindUser:
		pager := iam.NewListAttachedUserPoliciesPaginator(c.api, &iam.ListAttachedUserPoliciesInput{
			UserName: aws.String(principal),
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, eris.Wrapf(err, "failed to list attached policies of user %s", principal)
			}

			for _, policy := range page.AttachedPolicies {
				policies = append(policies, AttachedPolicy{
					Name: aws.ToString(policy.PolicyName),
					ARN:  aws.ToString(policy.PolicyArn),
				})
			}
		}
	case KindRole:
		pager := iam.NewListAttachedRolePoliciesPaginator(c.api, &iam.ListAttachedRolePoliciesInput{
			RoleName: aws.String(principal),
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, eris.Wrapf(err, "failed to list attached policies of role %s", principal)
			}

			for _, policy := range page.AttachedPolicies {
				policies = append(policies, AttachedPolicy{
					Name: aws.ToString(policy.PolicyName),
					ARN:  aws.ToString(policy.PolicyArn),
				})
			}
		}
	}

	return policies, nil
}

// PolicyDocument fetches the document behind a managed policy's default
// version.
func (c *SDKClient) PolicyDocument(ctx context.Context, arn string) (string, error) {
	policy, err := c.api.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: aws.String(arn)})
	if err != nil {
		return "", eris.Wrapf(err, "failed to fetch policy %s", arn)
	}

	version, err := c.api.GetPolicyVersion(ctx, &iam.GetPolicyVersionInput{
		PolicyArn: aws.String(arn),
		VersionId: policy.Policy.DefaultVersionId,
	})
	if err != nil {
		return "", eris.Wrapf(err, "failed to fetch the default version of policy %s", arn)
	}

	return DecodeDocument(aws.ToString(version.PolicyVersion.Document))
}

// DecodeDocument turns the URL-encoded JSON the IAM API returns into an
// indented document.
func DecodeDocument(raw string) (string, error) {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return "", eris.Wrap(err, "failed to unescape the policy document")
	}

	buffer := bytes.Buffer{}
	if err := json.Indent(&buffer, []byte(decoded), "", "  "); err != nil {
		return "", eris.Wrap(err, "failed to indent the policy document")
	}

	return buffer.String(), nil
}
