// Package config handles configuration loading and validation from
// environment variables and an optional config file. It provides
// type-safe access to server, remote-store and sync settings while
// keeping configuration details out of the business packages.
package config
