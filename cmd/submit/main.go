package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/netrixframework/timeoutd/apiserver"
	"github.com/netrixframework/timeoutd/types"
	"github.com/netrixframework/timeoutd/util"
	"github.com/spf13/cobra"
)

// SubmitCmd sends a timeout request to a running service
func SubmitCmd() *cobra.Command {
	var (
		serverAddr string
		replyTo    string
		delay      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit [correlation_id]",
		Short: "Ask a running service for a reply after a delay",
		Long: "Ask a running service for a reply after a delay.\n" +
			"A correlation_id that is valid json (42, {\"k\":\"v\"}, \"abc\") is sent as is, anything else as a json string.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if replyTo == "" {
				return fmt.Errorf("--reply-to is required")
			}
			body, err := json.Marshal(&types.TimeoutRequest{
				CorrelationID: correlationID(args[0]),
				Timeout:       types.Delay(delay),
			})
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			resp, err := util.SendMsg(
				ctx,
				http.MethodPost,
				serverAddr+"/timeout",
				body,
				util.JsonRequest(),
				util.WithHeader(apiserver.ReturnAddressHeader, replyTo),
			)
			if err != nil {
				return fmt.Errorf("submit failed: %w: %s", err, resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVarP(&serverAddr, "server", "s", "localhost:7074", "Address of the timeout service")
	cmd.Flags().StringVarP(&replyTo, "reply-to", "r", "", "Return address of the reply")
	cmd.Flags().DurationVarP(&delay, "delay", "d", 0, "Delay before the reply is sent")
	return cmd
}

func correlationID(arg string) types.CorrelationID {
	if id := types.CorrelationID(arg); arg != "" && id.Valid() {
		return id
	}
	return types.StringID(arg)
}
