package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hkxedit/hkxedit/internal/behavior"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hkxedit",
		Short: "Inspect and edit Havok behavior XML files",
		Long: `hkxedit loads Havok packfile XML behavior graphs, keeps the object
reference graph and the variable, event and character property tables in
step, and writes the files back byte-for-byte where nothing changed.

Open files are remembered per working directory in .hkxedit/session.json.
Settings are read from --config or .hkxedit.yaml.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Settings file (default: .hkxedit.yaml when present)")
	rootCmd.PersistentFlags().String("file", "", "Open file to act on, by session index or path (default: current file)")

	// Session Commands
	openCmd := &cobra.Command{
		Use:   "open <file>",
		Short: "Open a behavior file and make it current",
		Args:  cobra.ExactArgs(1),
		RunE:  RunOpen,
	}
	openCmd.Flags().Bool("json", false, "Print machine-readable result")

	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "Close the current file",
		Args:  cobra.NoArgs,
		RunE:  RunClose,
	}

	useCmd := &cobra.Command{
		Use:   "use <index|file>",
		Short: "Select the current file",
		Args:  cobra.ExactArgs(1),
		RunE:  RunUse,
	}

	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "List open files",
		Args:  cobra.NoArgs,
		RunE:  RunFiles,
	}
	filesCmd.Flags().Bool("json", false, "Print machine-readable file list")

	skeletonCmd := &cobra.Command{
		Use:   "skeleton [file]",
		Short: "Load a skeleton file into the session, or show the loaded one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunSkeleton,
	}
	skeletonCmd.Flags().Bool("json", false, "Print machine-readable bone list")

	characterCmd := &cobra.Command{
		Use:   "character [file]",
		Short: "Load a character file into the session, or show the loaded one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunCharacter,
	}
	characterCmd.Flags().Bool("json", false, "Print machine-readable character summary")

	// Inspect Commands
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Summarize a behavior file",
		Args:  cobra.NoArgs,
		RunE:  RunInfo,
	}
	infoCmd.Flags().Bool("json", false, "Print machine-readable summary")

	objectsCmd := &cobra.Command{
		Use:   "objects",
		Short: "List objects",
		Args:  cobra.NoArgs,
		RunE:  RunObjects,
	}
	objectsCmd.Flags().String("class", "", "Only list objects of this class")
	objectsCmd.Flags().Bool("json", false, "Print machine-readable object list")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the XML of one object",
		Args:  cobra.ExactArgs(1),
		RunE:  RunShow,
	}

	classesCmd := &cobra.Command{
		Use:   "classes",
		Short: "List the classes add can create",
		Args:  cobra.NoArgs,
		RunE:  RunClasses,
	}
	classesCmd.Flags().Bool("json", false, "Print machine-readable class list")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Report broken references, dangling indices and template drift",
		Args:  cobra.NoArgs,
		RunE:  RunCheck,
	}
	checkCmd.Flags().Bool("json", false, "Print machine-readable problems")

	diffCmd := &cobra.Command{
		Use:   "diff",
		Short: "Show what saving would change on disk",
		Args:  cobra.NoArgs,
		RunE:  RunDiff,
	}
	diffCmd.Flags().Bool("cleanup", false, "Preview a cleanup of unused entries")
	diffCmd.Flags().Bool("vars", false, "With --cleanup, only variables")
	diffCmd.Flags().Bool("events", false, "With --cleanup, only events")
	diffCmd.Flags().Bool("props", false, "With --cleanup, only character properties")
	diffCmd.Flags().Int("context", 2, "Unchanged lines shown around each change")
	diffCmd.Flags().Bool("json", false, "Print machine-readable diff")

	// Navigate Commands
	refsCmd := &cobra.Command{
		Use:   "refs <id>",
		Short: "Show the objects an object references",
		Args:  cobra.ExactArgs(1),
		RunE:  RunRefs,
	}
	refsCmd.Flags().Bool("json", false, "Print machine-readable references")

	refbyCmd := &cobra.Command{
		Use:   "refby <id>",
		Short: "Show the objects that reference an object",
		Args:  cobra.ExactArgs(1),
		RunE:  RunRefBy,
	}
	refbyCmd.Flags().Bool("json", false, "Print machine-readable referrers")

	pathCmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Find the shortest reference chain between two objects",
		Args:  cobra.ExactArgs(2),
		RunE:  RunPath,
	}
	pathCmd.Flags().Bool("json", false, "Print machine-readable path")

	traceCmd := &cobra.Command{
		Use:   "trace <id>",
		Short: "Trace outgoing references from an object up to depth N",
		Args:  cobra.ExactArgs(1),
		RunE:  RunTrace,
	}
	traceCmd.Flags().Int("depth", 2, "Traversal depth (>=1)")
	traceCmd.Flags().Bool("json", false, "Print machine-readable trace")

	topCmd := &cobra.Command{
		Use:   "top",
		Short: "Rank objects by how central they are in the reference graph",
		Args:  cobra.NoArgs,
		RunE:  RunTop,
	}
	topCmd.Flags().Int("limit", 10, "Number of objects to show")
	topCmd.Flags().Bool("json", false, "Print machine-readable ranking")

	orphansCmd := &cobra.Command{
		Use:   "orphans",
		Short: "List objects nothing references",
		Args:  cobra.NoArgs,
		RunE:  RunOrphans,
	}
	orphansCmd.Flags().Bool("json", false, "Print machine-readable object list")

	findCmd := &cobra.Command{
		Use:   "find [query]",
		Short: "Search objects by text and filter them with --where",
		Long: `Search ranks objects by ID, name, class and string params.

--where takes a boolean expression over id, class, name, refs, refby,
essential and params, for example:

  hkxedit find --where 'class == "hkbClipGenerator" && len(refby) > 1'
  hkxedit find run --where 'params["name"] startsWith "Run"'`,
		RunE: RunFind,
	}
	findCmd.Flags().String("where", "", "Filter expression")
	findCmd.Flags().Int("limit", 10, "Maximum number of results")
	findCmd.Flags().Bool("json", false, "Print machine-readable results")

	// Edit Commands
	addCmd := &cobra.Command{
		Use:   "add <class>",
		Short: "Add an object with the default value of its class",
		Args:  cobra.ExactArgs(1),
		RunE:  RunAdd,
	}

	delCmd := &cobra.Command{
		Use:   "del <id>",
		Short: "Delete an unreferenced, non-essential object",
		Args:  cobra.ExactArgs(1),
		RunE:  RunDel,
	}

	setCmd := &cobra.Command{
		Use:   "set <id> <param> <value>",
		Short: "Set the text of a leaf param",
		Args:  cobra.ExactArgs(3),
		RunE:  RunSet,
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove unused variables, events and character properties",
		Args:  cobra.NoArgs,
		RunE:  RunCleanup,
	}
	cleanupCmd.Flags().Bool("vars", false, "Only variables")
	cleanupCmd.Flags().Bool("events", false, "Only events")
	cleanupCmd.Flags().Bool("props", false, "Only character properties")
	cleanupCmd.Flags().Bool("json", false, "Print machine-readable counts")

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Compact the linked tables and rewrite every index reference",
		Args:  cobra.NoArgs,
		RunE:  RunReindex,
	}
	reindexCmd.Flags().Bool("json", false, "Print machine-readable remaps")

	saveCmd := &cobra.Command{
		Use:   "save [file]",
		Short: "Save the file, or write a copy to another path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunSave,
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Report changes other programs make to the open files",
		Args:  cobra.NoArgs,
		RunE:  RunWatch,
	}
	watchCmd.Flags().Bool("once", false, "Exit after the first reported change")
	watchCmd.Flags().Bool("json", false, "Print one machine-readable record per change")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hkxedit %s\n", version)
		},
	}

	rootCmd.AddCommand(
		openCmd,
		closeCmd,
		useCmd,
		filesCmd,
		skeletonCmd,
		characterCmd,
		infoCmd,
		objectsCmd,
		showCmd,
		classesCmd,
		checkCmd,
		diffCmd,
		refsCmd,
		refbyCmd,
		pathCmd,
		traceCmd,
		topCmd,
		orphansCmd,
		findCmd,
		addCmd,
		delCmd,
		setCmd,
		newTableCommand(behavior.KindVariable, "vars", "Manage behavior variables"),
		newTableCommand(behavior.KindEvent, "events", "Manage behavior events"),
		newTableCommand(behavior.KindProperty, "props", "Manage character properties"),
		cleanupCmd,
		reindexCmd,
		saveCmd,
		watchCmd,
		versionCmd,
	)

	return rootCmd
}

func newTableCommand(kind behavior.Kind, use, short string) *cobra.Command {
	tableCmd := &cobra.Command{
		Use:   use,
		Short: short,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %ss with their use counts", kind),
		Args:  cobra.NoArgs,
		RunE:  runTableList(kind),
	}
	listCmd.Flags().Bool("json", false, "Print machine-readable entries")

	addUse := "add <name> <type>"
	addArgs := cobra.ExactArgs(2)
	if kind == behavior.KindEvent {
		addUse = "add <name>"
		addArgs = cobra.ExactArgs(1)
	}
	addCmd := &cobra.Command{
		Use:   addUse,
		Short: fmt.Sprintf("Add a %s", kind),
		Args:  addArgs,
		RunE:  runTableAdd(kind),
	}

	delCmd := &cobra.Command{
		Use:   "del <index|name>",
		Short: fmt.Sprintf("Delete an unused %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE:  runTableDel(kind),
	}

	renameCmd := &cobra.Command{
		Use:   "rename <index|name> <new-name>",
		Short: fmt.Sprintf("Rename a %s", kind),
		Args:  cobra.ExactArgs(2),
		RunE:  runTableRename(kind),
	}

	tableCmd.AddCommand(listCmd, addCmd, delCmd, renameCmd)
	if kind == behavior.KindVariable {
		tableCmd.AddCommand(&cobra.Command{
			Use:   "set <index|name> <value>...",
			Short: "Set the initial value of a variable",
			Args:  cobra.MinimumNArgs(2),
			RunE:  RunVarSet,
		})
	}
	return tableCmd
}
