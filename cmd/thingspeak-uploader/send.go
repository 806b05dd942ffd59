package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"thingspeak-uploader/internal/config"
	"thingspeak-uploader/internal/protocol"
)

var (
	sendChannel string
	sendFields  []string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one measurement set and exit",
	Long:  "send uploads a single measurement set to a configured channel and prints the outcome and the delay required before the next send.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		values, err := parseFieldArgs(sendFields)
		if err != nil {
			return err
		}
		rs, err := newRecorders(cfg, outputNone)
		if err != nil {
			return err
		}
		defer rs.cleanup()
		c, err := newClient(cfg, rs, nil)
		if err != nil {
			return err
		}
		name := sendChannel
		if name == "" {
			name = cfg.Loop.Channel
		}
		ok, err := c.Send(name, values)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "channel=%q accepted=%t next_send_in=%s\n", name, ok, c.FreeAPIDelay())
		if !ok {
			return errors.Errorf("update rejected by %s", cfg.API.Host)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendChannel, "channel", "", "Channel name (defaults to the loop channel)")
	sendCmd.Flags().StringArrayVar(&sendFields, "field", nil, "Measurement as name=value; repeatable")
	sendCmd.MarkFlagRequired("field")
}

// parseFieldArgs turns name=value pairs into a measurement set. Values that
// parse as integers or floats are sent as numbers, everything else as text.
func parseFieldArgs(args []string) (protocol.Measurements, error) {
	values := make(protocol.Measurements, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, errors.NotValidf("field %q, want name=value", arg)
		}
		if _, dup := values[name]; dup {
			return nil, errors.NotValidf("field %q given twice", name)
		}
		values[name] = parseValue(raw)
	}
	return values, nil
}

func parseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
