package main

import (
	"errors"
	"fmt"

	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/urfave/cli/v2"
)

var phraseCommand = &cli.Command{
	Name:  "phrase",
	Usage: "Generate and check recovery phrases",
	Subcommands: []*cli.Command{
		{
			Name:  "generate",
			Usage: "print a new 24-word recovery phrase",
			Action: func(cCtx *cli.Context) error {
				phrase, err := identity.GeneratePhrase()
				if err != nil {
					return err
				}
				fmt.Println(phrase)
				return nil
			},
		},
		{
			Name:      "validate",
			Usage:     "check a recovery phrase",
			ArgsUsage: "<phrase>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1); err != nil {
					return err
				}
				if err := identity.ValidatePhrase(cCtx.Args().First()); err != nil {
					return err
				}
				fmt.Println("ok")
				return nil
			},
		},
	},
}

var flagPhrase = &cli.StringFlag{
	Name:  "phrase",
	Usage: "restore from this recovery phrase instead of generating one",
}

var flagKeepPhrase = &cli.BoolFlag{
	Name:  "keep-phrase",
	Usage: "store the phrase inside the sealed identity so it can be shown again",
}

var identityCommand = &cli.Command{
	Name:  "identity",
	Usage: "Manage the local identity",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "create or restore an identity and seal it under the passphrase",
			Flags: []cli.Flag{flagPhrase, flagKeepPhrase},
			Action: func(cCtx *cli.Context) error {
				e, err := newEnv(cCtx, false)
				if err != nil {
					return err
				}

				name := cCtx.String(flagIdentity.Name)
				if _, err := e.identities.Get(cCtx.Context, name); err == nil {
					return fmt.Errorf("identity %q already exists", name)
				} else if !errors.Is(err, interfaces.ErrRecordNotFound) {
					return err
				}

				passphrase := cCtx.String(flagPassphrase.Name)
				if passphrase == "" {
					return errors.New("a passphrase is required")
				}

				phrase := cCtx.String(flagPhrase.Name)
				generated := phrase == ""
				if generated {
					if phrase, err = identity.GeneratePhrase(); err != nil {
						return err
					}
				}

				id, err := identity.FromPhrase(phrase)
				if err != nil {
					return err
				}
				defer id.Zero()

				sealed, err := identity.Seal(id, passphrase, identity.SealOpts{
					Phrase:        phrase,
					IncludePhrase: cCtx.Bool(flagKeepPhrase.Name),
				})
				if err != nil {
					return err
				}
				if err := e.identities.Put(cCtx.Context, name, sealed); err != nil {
					return err
				}

				e.log.Info("Created identity", "name", name, "commitment", id.Commitment)
				if generated {
					fmt.Println("Recovery phrase (write it down, it is shown once):")
					fmt.Println(phrase)
				}
				return printJSON(id.Public())
			},
		},
		{
			Name:  "show",
			Usage: "print the public identity to share with board owners",
			Action: func(cCtx *cli.Context) error {
				e, err := newEnv(cCtx, false)
				if err != nil {
					return err
				}
				sealed, err := e.identities.Get(cCtx.Context, cCtx.String(flagIdentity.Name))
				if err != nil {
					return err
				}
				return printJSON(identity.PublicIdentity{
					Commitment: sealed.Commitment,
					PublicKey:  sealed.PublicKey,
				})
			},
		},
		{
			Name:  "phrase",
			Usage: "print the recovery phrase, if it was kept",
			Action: func(cCtx *cli.Context) error {
				e, err := newEnv(cCtx, false)
				if err != nil {
					return err
				}
				sealed, err := e.identities.Get(cCtx.Context, cCtx.String(flagIdentity.Name))
				if err != nil {
					return err
				}
				id, phrase, err := identity.Open(sealed, cCtx.String(flagPassphrase.Name))
				if err != nil {
					return err
				}
				id.Zero()
				if phrase == "" {
					return errors.New("the recovery phrase was not kept for this identity")
				}
				fmt.Println(phrase)
				return nil
			},
		},
		{
			Name:  "list",
			Usage: "list local identities",
			Action: func(cCtx *cli.Context) error {
				e, err := newEnv(cCtx, false)
				if err != nil {
					return err
				}
				names, err := e.identities.List(cCtx.Context)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Println(name)
				}
				return nil
			},
		},
	},
}
