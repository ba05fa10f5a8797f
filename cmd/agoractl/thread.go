package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	threadHandler "Agora/internal/api/handlers/thread"
	"Agora/internal/core/threads"
)

func newThreadCmd() *cobra.Command {
	var flat bool

	cmd := &cobra.Command{
		Use:   "thread <file|->",
		Short: "Build reply trees from a flat JSON message list",
		Long: `Reads either a JSON array of messages or an object with a "messages" array.
Each message needs an "id" and may carry a "replyToId"; all other fields are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader
			if args[0] == "-" {
				in = cmd.InOrStdin()
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			raw, err := readMessages(in)
			if err != nil {
				return err
			}
			messages, err := threadHandler.ParseMessages(raw)
			if err != nil {
				return err
			}

			roots := threads.Build(messages)
			if flat {
				ids := make([]threadHandler.MessageID, 0, len(messages))
				for _, n := range threads.Flatten(roots) {
					ids = append(ids, n.ID)
				}
				return printJSON(cmd.OutOrStdout(), ids)
			}
			return printJSON(cmd.OutOrStdout(), roots)
		},
	}

	cmd.Flags().BoolVar(&flat, "flat", false, "print ids in render order instead of the tree")
	return cmd
}

func readMessages(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var raw []json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid message list: %w", err)
		}
		return raw, nil
	}

	var wrapped struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid message list: %w", err)
	}
	return wrapped.Messages, nil
}
