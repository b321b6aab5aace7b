package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/kms"
	"github.com/urfave/cli/v2"
)

var flagThreshold = &cli.IntFlag{
	Name:  "threshold",
	Value: 2,
	Usage: "number of guardian shares needed to recover",
}

var flagGuardian = &cli.StringSliceFlag{
	Name:  "guardian",
	Usage: "name=public-identity.json of a guardian; repeat for each guardian",
}

var flagShare = &cli.StringSliceFlag{
	Name:  "share",
	Usage: "hex share returned by a guardian; repeat for each share",
}

var flagCommitment = &cli.StringFlag{
	Name:  "commitment",
	Usage: "expected commitment of the recovered identity",
}

var backupCommand = &cli.Command{
	Name:  "backup",
	Usage: "Split the identity seed among guardians and recover it",
	Subcommands: []*cli.Command{
		{
			Name:  "split",
			Usage: "seal one seed share to each guardian",
			Flags: []cli.Flag{flagThreshold, flagGuardian, flagOut},
			Action: func(cCtx *cli.Context) error {
				e, err := newEnv(cCtx, false)
				if err != nil {
					return err
				}
				id, err := e.loadIdentity(cCtx)
				if err != nil {
					return err
				}
				defer id.Zero()

				guardians := make(map[string][]byte)
				for _, g := range cCtx.StringSlice(flagGuardian.Name) {
					name, path, ok := strings.Cut(g, "=")
					if !ok {
						return fmt.Errorf("guardian %q must be name=file", g)
					}
					var pub identity.PublicIdentity
					if err := readJSON(path, &pub); err != nil {
						return err
					}
					guardians[name] = pub.PublicKey
				}

				shares, err := kms.SplitSeed(id.Seed(), cCtx.Int(flagThreshold.Name), guardians)
				if err != nil {
					return err
				}
				return writeOut(cCtx, shares)
			},
		},
		{
			Name:      "open-share",
			Usage:     "run by a guardian: decrypt the share sealed to the local identity",
			ArgsUsage: "<shares.json>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1); err != nil {
					return err
				}
				var shares []kms.GuardianShare
				if err := readJSON(cCtx.Args().First(), &shares); err != nil {
					return err
				}
				e, err := newEnv(cCtx, false)
				if err != nil {
					return err
				}
				id, err := e.loadIdentity(cCtx)
				if err != nil {
					return err
				}
				defer id.Zero()

				for _, share := range shares {
					plain, err := kms.OpenShare(share, id.PrivateKey[:])
					if err != nil {
						continue
					}
					fmt.Println(hexutil.Encode(plain))
					return nil
				}
				return errors.New("no share is sealed to this identity")
			},
		},
		{
			Name:  "recover",
			Usage: "rebuild the identity from guardian shares and seal it locally",
			Flags: []cli.Flag{flagShare, flagCommitment},
			Action: func(cCtx *cli.Context) error {
				e, err := newEnv(cCtx, false)
				if err != nil {
					return err
				}

				raw := cCtx.StringSlice(flagShare.Name)
				recovery := kms.NewSeedRecovery(len(raw), cCtx.String(flagCommitment.Name))
				for _, s := range raw {
					share, err := hexutil.Decode(s)
					if err != nil {
						return fmt.Errorf("invalid share: %w", err)
					}
					if err := recovery.SubmitShare(share); err != nil {
						return err
					}
				}

				id, ok := recovery.Recovered()
				if !ok {
					return fmt.Errorf("recovery needs more shares, have %d", recovery.Received())
				}
				defer id.Zero()

				passphrase := cCtx.String(flagPassphrase.Name)
				if passphrase == "" {
					return errors.New("a passphrase is required")
				}
				sealed, err := identity.Seal(id, passphrase, identity.SealOpts{})
				if err != nil {
					return err
				}
				if err := e.identities.Put(cCtx.Context, cCtx.String(flagIdentity.Name), sealed); err != nil {
					return err
				}
				return printJSON(id.Public())
			},
		},
	},
}
