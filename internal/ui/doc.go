// Package ui formats scalereg command output.
//
// Formatters colorize text when the terminal supports it. When NO_COLOR is
// set, or fatih/color decides the output is not a colour terminal, they fall
// back to plain decorations so the output stays readable in logs and pipes:
//
//	ui.Identity.Sprint("LibraV0-3")  // LibraV0-3 or [LibraV0-3]
//	ui.Code.Sprint("scalereg init")   // `scalereg init` without colour
//	ui.Muted.Sprint("default")        // (default) without colour
//
// Table and ConfigLines render entries and configs in aligned columns.
package ui
