package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/value"
)

type issueOptions struct {
	kind       string
	identity   string
	headers    []string
	userClaims []string
	fresh      bool
	freshFor   time.Duration
	expiresIn  time.Duration
	noExpiry   bool
}

func newIssueCmd(env *environment) *cobra.Command {
	o := &issueOptions{}
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an access or refresh token",
		Long: `Issue a signed token for --identity.

Header and user claim values are parsed as JSON when they are valid JSON and
taken as strings otherwise, so --header tenant=42 writes a number and
--header region=eu writes a string.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIssue(cmd, env, o)
		},
	}

	cmd.Flags().StringVar(&o.kind, "kind", string(goToken.KindAccess), "token kind: access or refresh")
	cmd.Flags().StringVar(&o.identity, "identity", "", "identity claim value")
	cmd.Flags().StringArrayVar(&o.headers, "header", nil, "extra header as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&o.userClaims, "user-claim", nil, "user claim as key=value (repeatable)")
	cmd.Flags().BoolVar(&o.fresh, "fresh", false, "mark an access token fresh")
	cmd.Flags().DurationVar(&o.freshFor, "fresh-for", 0, "mark an access token fresh for this long")
	cmd.Flags().DurationVar(&o.expiresIn, "expires-in", 0, "override the configured lifetime")
	cmd.Flags().BoolVar(&o.noExpiry, "no-expiry", false, "omit the exp claim")
	_ = cmd.MarkFlagRequired("identity")

	return cmd
}

func runIssue(cmd *cobra.Command, env *environment, o *issueOptions) error {
	var opts []goToken.IssueOption
	if len(o.headers) > 0 {
		headers, err := parseAssignments(o.headers)
		if err != nil {
			return fmt.Errorf("--header: %w", err)
		}
		opts = append(opts, goToken.WithHeaders(headers))
	}
	if len(o.userClaims) > 0 {
		claims, err := parseAssignments(o.userClaims)
		if err != nil {
			return fmt.Errorf("--user-claim: %w", err)
		}
		opts = append(opts, goToken.WithUserClaims(claims))
	}
	switch {
	case o.freshFor != 0:
		opts = append(opts, goToken.FreshFor(o.freshFor))
	case o.fresh:
		opts = append(opts, goToken.Fresh(true))
	}
	switch {
	case o.noExpiry:
		opts = append(opts, goToken.NoExpiry())
	case o.expiresIn != 0:
		opts = append(opts, goToken.ExpiresIn(o.expiresIn))
	}

	engine, err := env.engine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	var token string
	switch goToken.Kind(o.kind) {
	case goToken.KindAccess:
		token, err = engine.CreateAccessToken(cmd.Context(), o.identity, opts...)
	case goToken.KindRefresh:
		token, err = engine.CreateRefreshToken(cmd.Context(), o.identity, opts...)
	default:
		return fmt.Errorf("unknown token kind %q", o.kind)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

// parseAssignments turns key=value pairs into a mapping. Values that parse as
// JSON keep their JSON type.
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		if v, err := value.Decode([]byte(raw)); err == nil {
			out[key] = v
			continue
		}
		out[key] = raw
	}
	return out, nil
}
