package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/refguard/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Modules  int                        `json:"modules"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifests-dir>",
		Short: "Validate module manifests without running a check",
		Long: `Compile and validate the module manifests: empty or duplicate names,
self references and self rules. Reference cycles are reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, manifestsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadModules(manifestsDir, LoadModeFailFast)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, manifestsDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		code, message := parseCompileError(err)
		validationErrors = append(validationErrors, compiler.ValidationError{
			Field:   "load",
			Message: message,
			Code:    code,
		})
	}
	for _, m := range loadResult.Modules {
		formatter.VerboseLog("Validating module: %s", m.Name)
	}
	validationErrors = append(validationErrors, compiler.ValidateAll(loadResult.Modules)...)

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors, ExitFailure)
	}

	return outputValidateSuccess(formatter, len(loadResult.Modules), compiler.AnalyzeCycles(loadResult.Modules))
}

func outputValidateSuccess(formatter *OutputFormatter, modules int, warnings []compiler.CycleWarning) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Modules: modules, Warnings: warnings})
	}

	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "! %s\n", w.Message)
	}
	fmt.Fprintf(formatter.Writer, "✓ All %d module(s) valid\n", modules)
	return nil
}

// outputValidationErrors prints validation errors and returns an ExitError
// with exitCode. validate reports them as a failure (1); check treats them
// as a command error (2) because nothing was ingested.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError, exitCode int) error {
	if formatter.Format == "json" {
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return NewExitError(exitCode, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", err.Error())
	}
	fmt.Fprintln(formatter.Writer)

	return NewExitError(exitCode, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
