package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/value"
)

type decodeOptions struct {
	kind         string
	allowExpired bool
	fresh        bool
}

// decodedOutput is what decode prints.
type decodedOutput struct {
	Header     value.Map   `json:"header"`
	Claims     value.Map   `json:"claims"`
	Kind       string      `json:"kind"`
	Identity   value.Value `json:"identity"`
	JTI        string      `json:"jti,omitempty"`
	IssuedAt   *time.Time  `json:"issued_at,omitempty"`
	ExpiresAt  *time.Time  `json:"expires_at,omitempty"`
	Fresh      bool        `json:"fresh"`
	UserClaims value.Map   `json:"user_claims,omitempty"`
}

func newDecodeCmd(env *environment) *cobra.Command {
	o := &decodeOptions{}
	cmd := &cobra.Command{
		Use:   "decode TOKEN",
		Short: "Verify a token and print its header and claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, env, o, args[0])
		},
	}

	cmd.Flags().StringVar(&o.kind, "kind", "", "require access or refresh")
	cmd.Flags().BoolVar(&o.allowExpired, "allow-expired", false, "accept an expired token")
	cmd.Flags().BoolVar(&o.fresh, "fresh", false, "require a fresh access token")

	return cmd
}

func runDecode(cmd *cobra.Command, env *environment, o *decodeOptions, raw string) error {
	var opts []goToken.DecodeOption
	switch goToken.Kind(o.kind) {
	case "":
	case goToken.KindAccess, goToken.KindRefresh:
		opts = append(opts, goToken.ExpectKind(goToken.Kind(o.kind)))
	default:
		return fmt.Errorf("unknown token kind %q", o.kind)
	}
	if o.allowExpired {
		opts = append(opts, goToken.AllowExpired())
	}
	if o.fresh {
		opts = append(opts, goToken.RequireFresh())
	}

	engine, err := env.engine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	tok, err := engine.Decode(cmd.Context(), raw, opts...)
	if err != nil {
		return err
	}

	out := decodedOutput{
		Header:     tok.Header,
		Claims:     tok.Claims,
		Kind:       string(tok.Kind),
		Identity:   tok.Identity,
		JTI:        tok.JTI,
		IssuedAt:   optionalTime(tok.IssuedAt),
		ExpiresAt:  optionalTime(tok.ExpiresAt),
		Fresh:      tok.Fresh,
		UserClaims: tok.UserClaims,
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func newHeaderCmd(env *environment) *cobra.Command {
	var unverified bool
	cmd := &cobra.Command{
		Use:   "header TOKEN",
		Short: "Print a token's protected header",
		Long: `Print a token's protected header as JSON.

By default the token is fully verified first. With --unverified the header is
read without checking the signature or any claim, which is only suitable for
debugging.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if unverified {
				header, err := jwt.UnverifiedHeader(args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), header)
			}

			engine, err := env.engine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			header, err := engine.RawHeader(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), header)
		},
	}

	cmd.Flags().BoolVar(&unverified, "unverified", false, "skip signature and claim verification")

	return cmd
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
