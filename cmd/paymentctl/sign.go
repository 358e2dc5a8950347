package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"go-college/config"
	"go-college/payment/order"
)

// sign reproduces provider signatures so operators can exercise verify and
// webhook endpoints against a staging deployment.
func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute provider signatures with the configured secrets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "payment [providerOrderId] [providerPaymentId]",
		Short: "Sign a client payment confirmation with PROVIDER_KEY_SECRET",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.ProviderKeySecret == "" {
				return fmt.Errorf("%w: PROVIDER_KEY_SECRET is not set", order.ErrConfigurationMissing)
			}
			fmt.Fprintln(cmd.OutOrStdout(), order.SignPayment(cfg.ProviderKeySecret, args[0], args[1]))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "webhook [file|-]",
		Short: "Sign a webhook body with PROVIDER_WEBHOOK_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.ProviderWebhookSecret == "" {
				return fmt.Errorf("%w: PROVIDER_WEBHOOK_SECRET is not set", order.ErrConfigurationMissing)
			}

			var body []byte
			if args[0] == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), order.Sign(cfg.ProviderWebhookSecret, body))
			return nil
		},
	})
	return cmd
}
