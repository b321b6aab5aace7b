package main

import (
	"errors"
	"fmt"

	"github.com/ruteri/zkkb/api/gatekeeperhandler"
	"github.com/ruteri/zkkb/cmd/flags"
	"github.com/ruteri/zkkb/gatekeeper"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/ruteri/zkkb/membership"
	"github.com/ruteri/zkkb/session"
	"github.com/ruteri/zkkb/storage"
	"github.com/urfave/cli/v2"
)

var flagClass = &cli.StringFlag{
	Name:  "class",
	Usage: "scope the proof to this action class instead of the whole board",
}

var proofCommand = &cli.Command{
	Name:  "proof",
	Usage: "Prove board membership anonymously",
	Subcommands: []*cli.Command{
		{
			Name:      "prove",
			Usage:     "print a membership proof for a message",
			ArgsUsage: "<board-id> <message>",
			Flags:     []cli.Flag{flagClass, flagOut},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				proof, err := s.AuthorizeAction(cCtx.Context, cCtx.Args().First(), cCtx.String(flagClass.Name), cCtx.Args().Get(1))
				if err != nil {
					return err
				}
				return writeOut(cCtx, proof)
			},
		},
		{
			Name:      "verify",
			Usage:     "verify a proof against the local view of a board",
			ArgsUsage: "<board-id> <proof.json>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				var proof interfaces.MembershipProof
				if err := readJSON(cCtx.Args().Get(1), &proof); err != nil {
					return err
				}
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				ob, err := s.OpenBoard(cCtx.Context, cCtx.Args().First())
				if err != nil {
					return err
				}
				group, err := session.Group(ob.Doc)
				if err != nil {
					return err
				}
				if !membership.InBoardScope(proof.Scope, ob.ID) || !membership.VerifyMembershipProof(cCtx.Context, &proof, group.Root()) {
					return interfaces.ErrNotAuthorized
				}
				fmt.Println("valid", proof.Nullifier)
				return nil
			},
		},
		{
			Name:      "publish-root",
			Usage:     "register the current member set of a board with the gatekeeper",
			ArgsUsage: "<board-id>",
			Flags:     []cli.Flag{flags.GatekeeperAddrFlag},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1); err != nil {
					return err
				}
				return publishRoot(cCtx, cCtx.Args().First())
			},
		},
		{
			Name:      "submit",
			Usage:     "prove membership for a message to the gatekeeper",
			ArgsUsage: "<board-id> <message>",
			Flags:     []cli.Flag{flagClass, flags.GatekeeperAddrFlag},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				proof, err := s.AuthorizeAction(cCtx.Context, cCtx.Args().First(), cCtx.String(flagClass.Name), cCtx.Args().Get(1))
				if err != nil {
					return err
				}
				client := gatekeeperhandler.NewClient(cCtx.String(flags.GatekeeperAddrFlag.Name))
				resp, err := client.SubmitAction(cCtx.Context, cCtx.Args().First(), proof)
				if err != nil {
					return err
				}
				return printJSON(resp)
			},
		},
	},
}

func publishRoot(cCtx *cli.Context, boardID string) error {
	ctx := cCtx.Context

	e, err := newEnv(cCtx, false)
	if err != nil {
		return err
	}
	id, err := e.loadIdentity(cCtx)
	if err != nil {
		return err
	}
	s, err := session.New(id, session.Config{Records: e.records, Log: e.log})
	if err != nil {
		return err
	}

	ob, err := s.OpenBoard(ctx, boardID)
	if err != nil {
		return err
	}
	group, err := session.Group(ob.Doc)
	if err != nil {
		return err
	}
	newRoot := group.Root()

	// The group last registered from this device. A root update has to be
	// proven against it.
	published := storage.NewRepository[membership.ExportedGroup](e.records, interfaces.PublishedNamespace)
	client := gatekeeperhandler.NewClient(cCtx.String(flags.GatekeeperAddrFlag.Name))

	var proof *interfaces.MembershipProof
	current, err := client.GetRoot(ctx, boardID)
	switch {
	case errors.Is(err, interfaces.ErrBoardNotFound):
		// First registration, nothing to prove against yet.
	case err != nil:
		return err
	case membership.SameRoot(current.Root, newRoot):
		fmt.Println(newRoot)
		return nil
	default:
		prev, err := published.Get(ctx, boardID)
		if err != nil {
			return fmt.Errorf("%w: registered root %s was not published from this device", interfaces.ErrStaleAuthorization, current.Root)
		}
		if !membership.SameRoot(prev.Root, current.Root) {
			return fmt.Errorf("%w: registered root %s moved since the last publish", interfaces.ErrStaleAuthorization, current.Root)
		}
		prevGroup, err := membership.ImportGroup(*prev)
		if err != nil {
			return err
		}
		proof, err = membership.GenerateMembershipProof(ctx, id, prevGroup, gatekeeper.RootUpdateMessage(newRoot), boardID)
		if err != nil {
			return err
		}
	}

	resp, err := client.SetRoot(ctx, boardID, newRoot, proof)
	if err != nil {
		return err
	}
	if err := published.Put(ctx, boardID, &membership.ExportedGroup{Root: resp.Root, Members: group.Members()}); err != nil {
		return err
	}

	e.log.Info("Published board root", "board_id", boardID, "root", resp.Root)
	fmt.Println(resp.Root)
	return nil
}
