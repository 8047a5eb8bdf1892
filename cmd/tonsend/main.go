// Tonsend sends the avatar parameter that tondrag reacts to, so the drag can
// be tried without the game running.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/spf13/pflag"

	"tondrag/oscmanager"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tonsend: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("tonsend", pflag.ContinueOnError)
	host := flags.String("host", "127.0.0.1", "host tondrag listens on")
	port := flags.Uint16("port", 9001, "UDP port tondrag listens on")
	address := flags.String("address", oscmanager.TriggerAddress, "OSC address to send")
	value := flags.Bool("value", true, "boolean value to send")
	count := flags.Int("count", 1, "number of messages to send")
	interval := flags.Duration("interval", time.Second, "pause between messages")
	raw := flags.Bool("raw", false, "print the encoded packet instead of sending it")
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if *raw {
		tag := ",F"
		if *value {
			tag = ",T"
		}
		packet, err := (&oscmanager.Message{Address: *address, TypeTag: tag}).MarshalBinary()
		if err != nil {
			return err
		}
		fmt.Print(hex.Dump(packet))
		return nil
	}

	client := osc.NewClient(*host, int(*port))
	for i := 0; i < *count; i++ {
		if i > 0 {
			time.Sleep(*interval)
		}
		if err := client.Send(osc.NewMessage(*address, *value)); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		fmt.Printf("sent %s %v to %s:%d\n", *address, *value, *host, *port)
	}
	return nil
}
