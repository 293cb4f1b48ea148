package cmd

import (
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// parseServeAddr resolves the listen address for the serve command.
// Precedence: --addr flag, then a positional host:port argument, then
// the configured default.
func parseServeAddr(args []string, defaultAddr string) (string, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addrFlag := fs.String("addr", "", "listen address (host:port)")
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("parse serve flags: %w", err)
	}

	addr := defaultAddr
	if *addrFlag != "" {
		addr = *addrFlag
	} else if rest := fs.Args(); len(rest) > 0 {
		addr = rest[0]
	}

	if err := validateAddr(addr); err != nil {
		return "", err
	}
	return addr, nil
}

// validateAddr checks that addr is a usable host:port pair.
// A bare ":port" binds all interfaces.
func validateAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid port %q in listen address", port)
	}
	if host != "" && !strings.EqualFold(host, "localhost") {
		if ip := net.ParseIP(host); ip == nil {
			// Hostnames other than localhost are allowed but must not
			// contain whitespace.
			if strings.ContainsAny(host, " \t") {
				return fmt.Errorf("invalid host %q in listen address", host)
			}
		}
	}
	return nil
}
