package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/windfall/phonoecho_service/internal/service"
)

func (c *cli) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for --user signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := service.NewAuthService(c.cfg.JWTSecret, c.cfg.JWTTTL).IssueToken(c.userID)
			if err != nil {
				return err
			}
			return c.println(token)
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	var subscription string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print attempt events from a Pub/Sub subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.build(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.PubSub == nil {
				return fmt.Errorf("PUBSUB_TOPIC and GCP_PROJECT_ID must be set")
			}
			return app.PubSub.WithSubscription(subscription).SubscribeJSON(cmd.Context(),
				func(ctx context.Context, data json.RawMessage, attrs map[string]string) error {
					var event service.AttemptEvent
					if err := json.Unmarshal(data, &event); err != nil {
						c.log.Warn().Err(err).Msg("Skipping undecodable event")
						return nil
					}
					return c.printJSON(event)
				})
		},
	}

	cmd.Flags().StringVar(&subscription, "subscription", "", "Pub/Sub subscription ID")
	cmd.MarkFlagRequired("subscription")
	return cmd
}
