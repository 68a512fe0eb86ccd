// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	tpmi2c "github.com/deanjicn/tpm-i2c-atmel"
)

var sendCmd = &cobra.Command{
	Use:   "send <command-hex>",
	Args:  cobra.ExactArgs(1),
	Short: "Transmit a raw command packet and print the hex response",
	RunE: func(cmd *cobra.Command, args []string) error {
		command, err := hex.DecodeString(args[0])
		if err != nil {
			return xerrors.Errorf("invalid command hex: %w", err)
		}

		transport, err := device().Open()
		if err != nil {
			return err
		}
		defer transport.Close()

		logrus.Debugf("sending %d command bytes", len(command))
		if _, err := transport.Write(command); err != nil {
			return xerrors.Errorf("cannot send command: %w", err)
		}

		rsp := make([]byte, tpmi2c.BufferSize)
		n, err := transport.Read(rsp)
		if err != nil {
			return xerrors.Errorf("cannot read response: %w", err)
		}
		logrus.Debugf("received %d response bytes", n)

		fmt.Println(hex.EncodeToString(rsp[:n]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
