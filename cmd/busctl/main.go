// Command busctl runs the I/O core against the host simulator behind an
// interactive shell.
package main

import (
	"flag"
	"os"

	"github.com/abiosoft/ishell"

	"iocore-go/logger"
	"iocore-go/platform"
)

func main() {
	flag.Parse()
	log := logger.NewSlog(logger.WarnLevel)

	s, err := Boot(platform.Default(), log)
	if err != nil {
		log.Error("boot failed", "err", err)
		os.Exit(1)
	}

	s.Attach(ishell.New())
	if args := flag.Args(); len(args) > 0 {
		err := s.Shell.Process(args...)
		s.Close()
		if err != nil {
			log.Error("command failed", "cmd", args[0], "err", err)
			os.Exit(1)
		}
		return
	}
	s.Shell.Run()
	s.Close()
}
