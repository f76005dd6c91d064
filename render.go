package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/video-stream/autosub/internal/storage"
	"github.com/video-stream/autosub/internal/subtitle/srt"
	"github.com/video-stream/autosub/internal/transcript"
)

func newRenderCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "render <transcript.json>",
		Short: "Encode a saved transcript JSON file as SRT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := renderTranscriptFile(args[0])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), doc)
				return err
			}
			return storage.WriteFileAtomic(output, []byte(doc), 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the SRT to this file instead of stdout")
	return cmd
}

func renderTranscriptFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	var result transcript.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("parse transcript %s: %w", path, err)
	}
	return srt.Encode(&result)
}
