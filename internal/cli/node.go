package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexora/backend/internal/domain/ivr"
)

// editFlow loads path, applies fn and then either rewrites the file (write)
// or prints the result.
func editFlow(cmd *cobra.Command, path string, write bool, fn func(doc *ivr.Document) (string, error)) error {
	flow, err := readFlow(path)
	if err != nil {
		return err
	}
	doc, err := ivr.FromModel(flow)
	if err != nil {
		return err
	}

	msg, err := fn(doc)
	if err != nil {
		return err
	}

	if !write {
		return encodeFlow(cmd.OutOrStdout(), doc.ToModel(), isJSON(path))
	}
	if err := writeFlow(path, doc.ToModel()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "✅ "+msg)
	return nil
}

func newNodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Add, delete, duplicate and configure nodes of a flow file",
		Long: `Node edits print the edited flow unless --write is given.
Values passed as key=value are read as YAML, so 30 is a number and
[a, b] a list. key= removes the key.`,
	}
	cmd.PersistentFlags().BoolP("write", "w", false, "rewrite the flow file in place")

	cmd.AddCommand(newNodeAddCommand())
	cmd.AddCommand(newNodeDeleteCommand())
	cmd.AddCommand(newNodeSetCommand())
	cmd.AddCommand(newNodeDuplicateCommand())
	cmd.AddCommand(newNodeLinkCommand())
	return cmd
}

func newNodeAddCommand() *cobra.Command {
	var (
		nodeType string
		after    string
		sets     []string
	)

	cmd := &cobra.Command{
		Use:   "add <flow-file>",
		Short: "Insert a new node, optionally right after another one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool("write")
			patch, err := parseAssignments(sets)
			if err != nil {
				return err
			}

			return editFlow(cmd, args[0], write, func(doc *ivr.Document) (string, error) {
				ed, err := doc.CreateNode(ivr.NodeType(nodeType), after)
				if err != nil {
					return "", err
				}
				if len(patch) == 0 {
					return fmt.Sprintf("Node %s added; it needs configuring before the flow can be saved", ed.NodeID()), nil
				}
				for k, v := range patch {
					if err := ed.Set(k, v); err != nil {
						return "", err
					}
				}
				if err := ed.Save(); err != nil {
					return "", err
				}
				return fmt.Sprintf("Node %s added", ed.NodeID()), nil
			})
		},
	}
	cmd.Flags().StringVarP(&nodeType, "type", "t", "", "node type (see ivrctl node-types)")
	cmd.Flags().StringVar(&after, "after", "", "insert after this node id (default: append)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "config key=value, repeatable")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newNodeDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <flow-file> <node-id>",
		Short: "Remove a node and reroute everything that pointed at it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool("write")
			return editFlow(cmd, args[0], write, func(doc *ivr.Document) (string, error) {
				if err := doc.DeleteNode(args[1]); err != nil {
					return "", err
				}
				return fmt.Sprintf("Node %s deleted", args[1]), nil
			})
		},
	}
}

func newNodeSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <flow-file> <node-id> key=value...",
		Short: "Merge values into a node's config",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool("write")
			patch, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			return editFlow(cmd, args[0], write, func(doc *ivr.Document) (string, error) {
				if err := doc.PatchConfig(args[1], patch); err != nil {
					return "", err
				}
				return fmt.Sprintf("Node %s updated", args[1]), nil
			})
		},
	}
}

func newNodeDuplicateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <flow-file> <node-id>",
		Short: "Copy a node into a new id placed right after it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool("write")
			return editFlow(cmd, args[0], write, func(doc *ivr.Document) (string, error) {
				dup, err := doc.DuplicateNode(args[1])
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Node %s duplicated as %s", args[1], dup.ID), nil
			})
		},
	}
}

func newNodeLinkCommand() *cobra.Command {
	var (
		branch    string
		asDefault bool
	)

	cmd := &cobra.Command{
		Use:   "link <flow-file> <from-id> <to-id>",
		Short: "Point a node's next, default or named branch at another node",
		Long:  `An empty <to-id> ("") clears the pointer.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool("write")
			from, to := args[1], args[2]
			return editFlow(cmd, args[0], write, func(doc *ivr.Document) (string, error) {
				var err error
				switch {
				case branch != "":
					err = doc.SetBranch(from, branch, to)
				case asDefault:
					err = doc.SetDefaultNext(from, to)
				default:
					err = doc.SetNext(from, to)
				}
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Node %s now routes to %q", from, to), nil
			})
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "branch label, e.g. open or closed")
	cmd.Flags().BoolVar(&asDefault, "default", false, "set the default route instead of next")
	return cmd
}
