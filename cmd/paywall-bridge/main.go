// Command paywall-bridge hosts a simulated paywall SDK behind the JSON-RPC bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

var version = "0.1"

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:]); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		log.Fatal(err)
	}
}

func run(args []string) error {
	options, err := ParseOptions(args)
	if err != nil {
		return err
	}
	if options.Version {
		fmt.Println(version)
		return nil
	}
	cfg, err := Load(context.Background(), options)
	if err != nil {
		return err
	}
	app := newApp(cfg)
	if err = app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}
