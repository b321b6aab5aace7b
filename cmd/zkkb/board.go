package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/zkkb/board"
	"github.com/urfave/cli/v2"
)

var flagDisplayName = &cli.StringFlag{
	Name:  "display-name",
	Usage: "name shown to other members",
}

var flagColumn = &cli.StringFlag{
	Name:  "column",
	Usage: "column id or title; defaults to the first column",
}

var flagDescription = &cli.StringFlag{
	Name:  "description",
	Usage: "card description",
}

var flagAssignee = &cli.StringFlag{
	Name:  "assignee",
	Usage: "commitment of the assigned member",
}

var flagTitle = &cli.StringFlag{
	Name:  "title",
	Usage: "new card title",
}

var boardCommand = &cli.Command{
	Name:  "board",
	Usage: "Create, inspect and edit boards",
	Subcommands: []*cli.Command{
		{
			Name:      "create",
			Usage:     "create a board with the default columns",
			ArgsUsage: "<name>",
			Flags:     []cli.Flag{flagDisplayName},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1); err != nil {
					return err
				}
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				ob, err := s.CreateBoard(cCtx.Context, cCtx.Args().First(), cCtx.String(flagDisplayName.Name))
				if err != nil {
					return err
				}
				fmt.Println(ob.ID)
				return nil
			},
		},
		{
			Name:  "list",
			Usage: "list local boards",
			Action: func(cCtx *cli.Context) error {
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				ids, err := s.ListBoards(cCtx.Context)
				if err != nil {
					return err
				}
				for _, id := range ids {
					ob, err := s.OpenBoard(cCtx.Context, id)
					if err != nil {
						fmt.Printf("%s\t<%v>\n", id, err)
						continue
					}
					fmt.Printf("%s\t%s\n", id, ob.Doc.Name())
				}
				return nil
			},
		},
		{
			Name:      "show",
			Usage:     "print a board as JSON",
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
				return printJSON(ob.Doc.Snapshot())
			},
		},
		{
			Name:      "rename",
			Usage:     "rename a board",
			ArgsUsage: "<board-id> <name>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				return apply(cCtx, func(doc *board.Document) (*board.Document, error) {
					return doc.Rename(cCtx.Args().Get(1)), nil
				})
			},
		},
		{
			Name:      "add-column",
			Usage:     "append a column",
			ArgsUsage: "<board-id> <title>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				return apply(cCtx, func(doc *board.Document) (*board.Document, error) {
					cols := doc.Columns()
					last := ""
					if len(cols) > 0 {
						last = cols[len(cols)-1].Position
					}
					pos, err := board.KeyBetween(last, "")
					if err != nil {
						return nil, err
					}
					next, id := doc.CreateColumn(cCtx.Args().Get(1), pos)
					fmt.Println(id)
					return next, nil
				})
			},
		},
		{
			Name:      "add-card",
			Usage:     "add a card at the bottom of a column",
			ArgsUsage: "<board-id> <title>",
			Flags:     []cli.Flag{flagColumn, flagDescription, flagAssignee},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				return apply(cCtx, func(doc *board.Document) (*board.Document, error) {
					col, err := findColumn(doc, cCtx.String(flagColumn.Name))
					if err != nil {
						return nil, err
					}
					pos, err := bottomOf(doc, col.ID)
					if err != nil {
						return nil, err
					}
					next, id := doc.CreateCard(board.CardInput{
						ColumnID:    col.ID,
						Title:       cCtx.Args().Get(1),
						Position:    pos,
						Description: cCtx.String(flagDescription.Name),
						Assignee:    cCtx.String(flagAssignee.Name),
					})
					fmt.Println(id)
					return next, nil
				})
			},
		},
		{
			Name:      "move-card",
			Usage:     "move a card to the bottom of a column",
			ArgsUsage: "<board-id> <card-id>",
			Flags:     []cli.Flag{flagColumn},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				return apply(cCtx, func(doc *board.Document) (*board.Document, error) {
					col, err := findColumn(doc, cCtx.String(flagColumn.Name))
					if err != nil {
						return nil, err
					}
					pos, err := bottomOf(doc, col.ID)
					if err != nil {
						return nil, err
					}
					return doc.MoveCard(cCtx.Args().Get(1), col.ID, pos), nil
				})
			},
		},
		{
			Name:      "update-card",
			Usage:     "change card fields",
			ArgsUsage: "<board-id> <card-id>",
			Flags:     []cli.Flag{flagTitle, flagDescription, flagAssignee},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				var upd board.CardUpdate
				if cCtx.IsSet(flagTitle.Name) {
					v := cCtx.String(flagTitle.Name)
					upd.Title = &v
				}
				if cCtx.IsSet(flagDescription.Name) {
					v := cCtx.String(flagDescription.Name)
					upd.Description = &v
				}
				if cCtx.IsSet(flagAssignee.Name) {
					v := cCtx.String(flagAssignee.Name)
					upd.Assignee = &v
				}
				return apply(cCtx, func(doc *board.Document) (*board.Document, error) {
					return doc.UpdateCard(cCtx.Args().Get(1), upd), nil
				})
			},
		},
		{
			Name:      "comment",
			Usage:     "comment on a card",
			ArgsUsage: "<board-id> <card-id> <text>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 3); err != nil {
					return err
				}
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				author := s.Identity().Commitment
				_, err = s.Apply(cCtx.Context, cCtx.Args().First(), func(doc *board.Document) (*board.Document, error) {
					return doc.AddComment(cCtx.Args().Get(1), author, cCtx.Args().Get(2)), nil
				})
				return err
			},
		},
		{
			Name:      "delete-card",
			Usage:     "delete a card",
			ArgsUsage: "<board-id> <card-id>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2); err != nil {
					return err
				}
				return apply(cCtx, func(doc *board.Document) (*board.Document, error) {
					return doc.DeleteCard(cCtx.Args().Get(1)), nil
				})
			},
		},
		{
			Name:      "attach",
			Usage:     "encrypt a file and attach it to a card",
			ArgsUsage: "<board-id> <card-id> <file>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 3); err != nil {
					return err
				}
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				path := cCtx.Args().Get(2)
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				att, err := s.PutAttachment(cCtx.Context, cCtx.Args().First(), cCtx.Args().Get(1), filepath.Base(path), data)
				if err != nil {
					return err
				}
				fmt.Println(att.ID)
				return nil
			},
		},
		{
			Name:      "get-attachment",
			Usage:     "decrypt an attachment to a file",
			ArgsUsage: "<board-id> <card-id> <attachment-id> <out-file>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 4); err != nil {
					return err
				}
				_, s, err := openSession(cCtx)
				if err != nil {
					return err
				}
				data, err := s.GetAttachment(cCtx.Context, cCtx.Args().First(), cCtx.Args().Get(1), cCtx.Args().Get(2))
				if err != nil {
					return err
				}
				return os.WriteFile(cCtx.Args().Get(3), data, 0o600)
			},
		},
	},
}

// apply runs fn against the board named by the first argument.
func apply(cCtx *cli.Context, fn func(*board.Document) (*board.Document, error)) error {
	_, s, err := openSession(cCtx)
	if err != nil {
		return err
	}
	_, err = s.Apply(cCtx.Context, cCtx.Args().First(), fn)
	return err
}

func findColumn(doc *board.Document, ref string) (board.Column, error) {
	cols := doc.Columns()
	if len(cols) == 0 {
		return board.Column{}, fmt.Errorf("board has no columns")
	}
	if ref == "" {
		return cols[0], nil
	}
	for _, c := range cols {
		if c.ID == ref || strings.EqualFold(c.Title, ref) {
			return c, nil
		}
	}
	return board.Column{}, fmt.Errorf("no column %q", ref)
}

func bottomOf(doc *board.Document, columnID string) (string, error) {
	cards := doc.CardsInColumn(columnID)
	last := ""
	if len(cards) > 0 {
		last = cards[len(cards)-1].Position
	}
	return board.KeyBetween(last, "")
}
