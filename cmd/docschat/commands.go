package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the documentation topics the server can answer from",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/topics")
		if err != nil {
			return err
		}

		var body struct {
			Topics []string `json:"topics"`
			Count  int      `json:"count"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		if body.Count == 0 {
			fmt.Println("No topics registered.")
			return nil
		}
		for _, topic := range body.Topics {
			fmt.Println(topic)
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the documentation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		topic, _ := cmd.Flags().GetString("topic")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]string{"query": query}
		if topic != "" {
			req["topic"] = topic
		}

		resp, err := client.post(cmd.Context(), "/api/chat", req)
		if err != nil {
			return err
		}

		var body struct {
			Topic      string `json:"topic"`
			Response   string `json:"response"`
			Confidence int    `json:"confidence"`
			Source     string `json:"source"`
			Images     []struct {
				URL     string `json:"url"`
				Caption string `json:"caption"`
			} `json:"images"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		fmt.Println(body.Response)
		fmt.Println()
		printStatus("Topic", "%s", body.Topic)
		printStatus("Confidence", "%d", body.Confidence)
		printStatus("Source", "%s", body.Source)
		for _, img := range body.Images {
			if img.Caption != "" {
				printStatus("Image", "%s (%s)", img.URL, img.Caption)
			} else {
				printStatus("Image", "%s", img.URL)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("topic", "", "answer from a specific topic instead of auto-selecting")
}
