package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/session"
	"github.com/urfave/cli/v2"
)

var flagOut = &cli.StringFlag{
	Name:  "out",
	Usage: "write to this file instead of stdout",
}

var memberCommand = &cli.Command{
	Name:  "member",
	Usage: "Invite and remove board members",
	Subcommands: []*cli.Command{
		{
			Name:      "list",
			Usage:     "list board members in join order",
			ArgsUsage: "<board-id>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1); err != nil {
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
				for _, m := range ob.Doc.Members() {
					fmt.Printf("%s\t%s\n", m.Commitment, m.DisplayName)
				}
				return nil
			},
		},
		{
			Name:      "invite",
			Usage:     "grant a public identity access and print the invitation",
			ArgsUsage: "<board-id> <public-identity.json>",
			Flags:     []cli.Flag{flagDisplayName, flagOut},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				var invitee identity.PublicIdentity
				if err := readJSON(cCtx.Args().Get(1), &invitee); err != nil {
					return err
				}
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				inv, err := s.InviteMember(cCtx.Context, cCtx.Args().First(), invitee, cCtx.String(flagDisplayName.Name))
				if err != nil {
					return err
				}
				return writeOut(cCtx, inv)
			},
		},
		{
			Name:      "accept",
			Usage:     "join a board from an invitation",
			ArgsUsage: "<invitation.json>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1); err != nil {
					return err
				}
				var inv session.Invitation
				if err := readJSON(cCtx.Args().First(), &inv); err != nil {
					return err
				}
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				ob, err := s.AcceptInvitation(cCtx.Context, &inv)
				if err != nil {
					return err
				}
				fmt.Printf("%s\t%s\n", ob.ID, ob.Doc.Name())
				return nil
			},
		},
		{
			Name:      "remove",
			Usage:     "remove a member and rotate the board key",
			ArgsUsage: "<board-id> <commitment>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				_, err = s.RemoveMember(cCtx.Context, cCtx.Args().First(), cCtx.Args().Get(1))
				return err
			},
		},
	},
}

var syncCommand = &cli.Command{
	Name:  "sync",
	Usage: "Exchange encrypted changes with other replicas",
	Subcommands: []*cli.Command{
		{
			Name:      "export",
			Usage:     "print pending encrypted changes, one hex line each, and mark them synced",
			ArgsUsage: "<board-id>",
			Flags:     []cli.Flag{flagOut},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1); err != nil {
					return err
				}
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				boardID := cCtx.Args().First()
				changes, err := s.PendingChanges(cCtx.Context, boardID)
				if err != nil {
					return err
				}

				var b strings.Builder
				for _, c := range changes {
					b.WriteString(hexutil.Encode(c))
					b.WriteByte('\n')
				}
				if out := cCtx.String(flagOut.Name); out != "" {
					if err := os.WriteFile(out, []byte(b.String()), 0o600); err != nil {
						return err
					}
				} else {
					fmt.Print(b.String())
				}
				return s.MarkSynced(cCtx.Context, boardID, len(changes))
			},
		},
		{
			Name:      "import",
			Usage:     "merge encrypted changes exported by another replica",
			ArgsUsage: "<board-id> <changes-file>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				f, err := os.Open(cCtx.Args().Get(1))
				if err != nil {
					return err
				}
				defer f.Close()

				var changes [][]byte
				scanner := bufio.NewScanner(f)
				scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					if line == "" {
						continue
					}
					c, err := hexutil.Decode(line)
					if err != nil {
						return fmt.Errorf("invalid change line: %w", err)
					}
					changes = append(changes, c)
				}
				if err := scanner.Err(); err != nil {
					return err
				}

				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				_, err = s.MergePending(cCtx.Context, cCtx.Args().First(), changes)
				return err
			},
		},
	},
}

func writeOut(cCtx *cli.Context, v any) error {
	out := cCtx.String(flagOut.Name)
	if out == "" {
		return printJSON(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0o600)
}
