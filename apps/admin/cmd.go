package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

var (
	errHelp     = errors.New("help provided")
	errNoDatabase = errors.New("migrate needs the postgres storage (set STORAGE=postgres)")
)

type commandLine struct {
	db         *sql.DB // nil unless the postgres storage is used
	gradeSvc   grade.Service
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, fix, create)")
	_, _ = fmt.Fprintln(cli.out, "  addstudent -no NO -name NAME [-gender M|F] [-major MAJOR] - create a student")
	_, _ = fmt.Fprintln(cli.out, "  addcourse -no NO -name NAME -credit CREDIT - create a course")
	_, _ = fmt.Fprintln(cli.out, "  import students|courses FILE.xlsx - create students or courses from a spreadsheet")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addstudent":
		cmd := cli.newFlagSet("addstudent")
		no := cmd.String("no", "", "The student number.")
		name := cmd.String("name", "", "The student name.")
		gender := cmd.String("gender", "", "M or F.")
		major := cmd.String("major", "", "The student major.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *no == "" || *name == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.addStudent(grade.NewStudent{StudentNo: *no, Name: *name, Gender: *gender, Major: *major})

	case "addcourse":
		cmd := cli.newFlagSet("addcourse")
		no := cmd.String("no", "", "The course number.")
		name := cmd.String("name", "", "The course name.")
		credit := cmd.Float64("credit", 0, "The course credit.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *no == "" || *name == "" || *credit == 0 {
			cmd.Usage()
			return errHelp
		}
		return cli.addCourse(grade.NewCourse{CourseNo: *no, Name: *name, Credit: *credit})

	case "import":
		if len(args) != 4 || (args[2] != "students" && args[2] != "courses") {
			cli.printUsage()
			return errHelp
		}
		return cli.importFile(args[2], args[3])

	default:
		cli.printUsage()
		return errHelp
	}
}

// describe turns validator errors into readable field messages.
func (cli *commandLine) describe(err error) error {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return core.TranslateValidationErrors(vErrs, cli.translator)
	}
	return err
}
