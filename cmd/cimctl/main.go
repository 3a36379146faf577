// Command cimctl is a command-line client for ConfigMgr WMI providers
// over WS-Management.
//
// Password can be provided via:
//   - --password flag (least secure, visible in process list)
//   - CIMCTL_PASSWORD environment variable (recommended)
//   - stdin prompt (if neither flag nor env var is set)
//
// Examples:
//
//	export CIMCTL_PASSWORD='secret'
//	cimctl --server cm01.contoso.com --user CONTOSO\admin --ntlm query SMS_Package
//	cimctl --server cm01 --site PS1 query SMS_Package --where "Name LIKE 'Drivers%'"
//	cimctl --server cm01 invoke SMS_ClientOperation InitiateClientOperationEx Type=8 TargetCollectionID=PS100011
//	cimctl --server cm01 export-ts PS100020 deploy.xml
package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/smnsjas/go-cimclient/cim"
	"github.com/smnsjas/go-cimclient/internal/log"
	"github.com/smnsjas/go-cimclient/sms"
	"github.com/smnsjas/go-cimclient/wsman"
)

const passwordEnv = "CIMCTL_PASSWORD"

type options struct {
	server     string
	site       string
	username   string
	password   string
	domain     string
	useNTLM    bool
	useTLS     bool
	insecure   bool
	timeout    time.Duration
	port       int
	legacyPort int
	logLevel   string
	logFile    string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "cimctl",
		Short:         "Query and manage ConfigMgr WMI objects over WS-Management",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", "", "site server to connect through (default: local hostname)")
	flags.StringVar(&opts.site, "site", "", "site code (default: local site of the server)")
	flags.StringVar(&opts.username, "user", "", "username, optionally DOMAIN\\user")
	flags.StringVar(&opts.password, "password", "", "password (prefer "+passwordEnv+" env var)")
	flags.StringVar(&opts.domain, "domain", "", "authentication domain (or use DOMAIN\\user)")
	flags.BoolVar(&opts.useNTLM, "ntlm", false, "use NTLM authentication")
	flags.BoolVar(&opts.useTLS, "tls", false, "use HTTPS listener ports")
	flags.BoolVar(&opts.insecure, "insecure", false, "skip TLS certificate verification")
	flags.DurationVar(&opts.timeout, "timeout", cim.DefaultTimeout, "per-request timeout")
	flags.IntVar(&opts.port, "port", 0, "override the WinRM listener port")
	flags.IntVar(&opts.legacyPort, "legacy-port", 0, "override the compatibility listener port")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to this file (rotated) instead of stderr")

	root.AddCommand(
		newQueryCommand(opts),
		newInvokeCommand(opts),
		newNotifyCommand(opts),
		newOperationsCommand(opts),
		newExportTSCommand(opts),
		newImportTSCommand(opts),
	)
	return root
}

// newClient resolves credentials and builds the object client.
func newClient(opts *options) (*cim.Client, error) {
	logger, err := newLogger(opts)
	if err != nil {
		return nil, err
	}

	username, domain := opts.username, opts.domain
	if d, u, ok := strings.Cut(username, `\`); ok && domain == "" {
		domain, username = d, u
	}

	password := opts.password
	if username != "" && password == "" {
		password, err = resolvePassword()
		if err != nil {
			return nil, err
		}
	}

	authType := cim.AuthBasic
	if opts.useNTLM {
		authType = cim.AuthNTLM
	}

	return cim.New(cim.Config{
		Server:             opts.server,
		SiteCode:           opts.site,
		Username:           username,
		Password:           password,
		Domain:             domain,
		AuthType:           authType,
		UseTLS:             opts.useTLS,
		InsecureSkipVerify: opts.insecure,
		Timeout:            opts.timeout,
		Port:               opts.port,
		LegacyPort:         opts.legacyPort,
		Logger:             logger,
	})
}

func newLogger(opts *options) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", opts.logLevel)
	}

	if opts.logFile != "" {
		// 10 MiB per file, three backups.
		sink, err := log.NewRotatingFile(opts.logFile, 10<<20, 3)
		if err != nil {
			return nil, err
		}
		return log.New(sink, level), nil
	}
	return log.New(os.Stderr, level), nil
}

// resolvePassword checks the environment, then prompts when attached
// to a terminal.
func resolvePassword() (string, error) {
	if pass := os.Getenv(passwordEnv); pass != "" {
		return pass, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password required: set --password or %s", passwordEnv)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func newQueryCommand(opts *options) *cobra.Command {
	var (
		whereText string
		lazy      bool
		join      bool
	)

	cmd := &cobra.Command{
		Use:   "query <class>",
		Short: "Enumerate instances of a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			var qopts []cim.QueryOption
			if whereText != "" {
				qopts = append(qopts, cim.WhereText(
					"SELECT * FROM "+args[0]+" WHERE "+whereText))
			}
			if lazy {
				qopts = append(qopts, cim.LazyProperties())
			}
			if join {
				qopts = append(qopts, cim.RequiresJoin())
			}

			items, err := c.Query(cmd.Context(), args[0], qopts...)
			if err != nil {
				return err
			}

			for i := range items {
				printInstance(cmd, &items[i])
			}
			cmd.Printf("%d instance(s)\n", len(items))
			return nil
		},
	}

	cmd.Flags().StringVar(&whereText, "where", "", "WQL condition (appended after WHERE)")
	cmd.Flags().BoolVar(&lazy, "lazy", false, "re-fetch each result to populate lazy properties")
	cmd.Flags().BoolVar(&join, "join", false, "the condition joins classes; use batched enumeration")
	return cmd
}

func newInvokeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "invoke <class> <method> [key=value ...]",
		Short: "Invoke a static method on a class",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			methodArgs, err := parseArgs(args[2:])
			if err != nil {
				return err
			}

			c, err := newClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.Invoke(cmd.Context(), args[0], args[1], methodArgs)
			if err != nil {
				return err
			}

			cmd.Printf("ReturnValue: %d\n", result.ReturnValue)
			for _, name := range sortedKeys(result.Out) {
				cmd.Printf("%s: %s\n", name, strings.Join(result.Out[name], ", "))
			}
			if !result.Succeeded() {
				return fmt.Errorf("%s.%s returned %d", args[0], args[1], result.ReturnValue)
			}
			return nil
		},
	}
}

func newNotifyCommand(opts *options) *cobra.Command {
	var opType int

	cmd := &cobra.Command{
		Use:   "notify <collectionID>",
		Short: "Send a client notification to a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			svc := sms.NewService(c, nil)
			id, err := svc.InitiateClientOperation(cmd.Context(),
				sms.ClientOperationType(opType), args[0], nil)
			if err != nil {
				return err
			}
			cmd.Printf("operation %d queued\n", id)
			return nil
		},
	}

	cmd.Flags().IntVar(&opType, "type", int(sms.OperationRequestMachinePolicy),
		"notification type (8 = machine policy, 9 = user policy, 1 = full AV scan)")
	return cmd
}

func newOperationsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List client operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			ops, err := sms.NewService(c, nil).ListClientOperations(cmd.Context())
			if err != nil {
				return err
			}
			for _, op := range ops {
				cmd.Printf("%d\t%s\t%s\tstate=%d\tclients=%d\n",
					op.ID, op.Type, op.CollectionID, op.State, op.TotalClients)
			}
			return nil
		},
	}
}

func newExportTSCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export-ts <packageID> <file>",
		Short: "Export a task sequence's XML to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			return sms.NewService(c, nil).ExportTaskSequence(cmd.Context(), args[0], args[1])
		},
	}
}

func newImportTSCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import-ts <packageID> <file>",
		Short: "Replace a task sequence's XML from a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			return sms.NewService(c, nil).ImportTaskSequence(cmd.Context(), args[0], args[1])
		},
	}
}

// parseArgs turns key=value pairs into method arguments.
func parseArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", pair)
		}
		args[key] = value
	}
	return args, nil
}

func printInstance(cmd *cobra.Command, inst *wsman.Instance) {
	cmd.Println(inst.ClassName)
	names := make([]string, 0, len(inst.Properties))
	for name := range inst.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd.Printf("  %s: %s\n", name, strings.Join(inst.Properties[name], ", "))
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
