// Oscdump prints every OSC message that arrives on a UDP port. Use it to see
// which avatar parameters the game is sending before pointing tondrag at it.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/hypebeast/go-osc/osc"
	"github.com/spf13/pflag"

	"tondrag/oscmanager"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "oscdump: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("oscdump", pflag.ContinueOnError)
	host := flags.String("host", "127.0.0.1", "address to bind")
	port := flags.Uint16("port", 9001, "UDP port to listen for OSC messages on")
	filter := flags.String("address", "*", "only print messages for this OSC address (* for all)")
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	dispatcher := osc.NewStandardDispatcher()
	if err := dispatcher.AddMsgHandler(*filter, func(msg *osc.Message) {
		marker := ""
		if msg.Address == oscmanager.TriggerAddress {
			if v, ok := firstBool(msg); ok && v {
				marker = "  <- trigger"
			}
		}
		fmt.Printf("%s %v%s\n", msg.Address, msg.Arguments, marker)
	}); err != nil {
		return fmt.Errorf("register handler: %w", err)
	}

	server := &osc.Server{
		Addr:       net.JoinHostPort(*host, strconv.Itoa(int(*port))),
		Dispatcher: dispatcher,
	}

	fmt.Printf("Listening for OSC messages on %s (UDP)...\n", server.Addr)
	return server.ListenAndServe()
}

func firstBool(msg *osc.Message) (bool, bool) {
	if len(msg.Arguments) != 1 {
		return false, false
	}
	v, ok := msg.Arguments[0].(bool)
	return v, ok
}
