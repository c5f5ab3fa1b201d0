package artifacts

import (
	"regexp"
	"strings"

	"resume-builder/internal/shared/util"
)

// Sanitize normalizes generated component code so the hosting client can
// mount it without surprises. Best effort: every pass either improves
// the code or leaves it alone, and running the pipeline twice changes
// nothing the second time.
func Sanitize(code string) string {
	out := util.StripCodeFence(code)
	out = rewriteArbitraryClasses(out)
	out = ensureStateInitialized(out)
	out = ensureDefaultExport(out)
	out = ensureCopyAffordance(out)
	return strings.TrimSpace(out)
}

// Arbitrary Tailwind values ("w-[437px]") render unpredictably in the
// host, so they are rewritten to an approved utility per prefix, or
// dropped when the prefix has none.
var arbitraryClass = regexp.MustCompile(`([a-z][a-z-]*)-\[[^\[\]\s]*\]`)

var arbitraryFallbacks = map[string]string{
	"w":         "w-full",
	"h":         "h-auto",
	"max-w":     "max-w-xl",
	"max-h":     "max-h-full",
	"min-w":     "min-w-0",
	"min-h":     "min-h-0",
	"text":      "text-base",
	"bg":        "bg-gray-100",
	"p":         "p-4",
	"px":        "px-4",
	"py":        "py-2",
	"m":         "m-4",
	"mt":        "mt-4",
	"mb":        "mb-4",
	"gap":       "gap-4",
	"rounded":   "rounded-md",
	"border":    "border",
	"grid-cols": "grid-cols-2",
	"leading":   "leading-normal",
	"tracking":  "tracking-normal",
}

func rewriteArbitraryClasses(code string) string {
	return arbitraryClass.ReplaceAllStringFunc(code, func(match string) string {
		prefix := match[:strings.Index(match, "-[")]
		if fallback, ok := arbitraryFallbacks[prefix]; ok {
			return fallback
		}
		return ""
	})
}

var emptyUseState = regexp.MustCompile(`\buseState\(\s*\)`)

// useState() with no argument yields undefined state that breaks
// controlled inputs on first render.
func ensureStateInitialized(code string) string {
	return emptyUseState.ReplaceAllString(code, "useState(null)")
}

var componentDecl = regexp.MustCompile(`(?m)(?:function\s+([A-Z]\w*)\s*\(|(?:const|let|var)\s+([A-Z]\w*)\s*=)`)

// ensureDefaultExport guarantees the artifact has a default export. A
// named component gets an export appended; bare JSX gets wrapped in a
// component first.
func ensureDefaultExport(code string) string {
	if strings.Contains(code, "export default") {
		return code
	}
	if m := componentDecl.FindStringSubmatch(code); m != nil {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		return code + "\n\nexport default " + name + ";"
	}
	if strings.HasPrefix(strings.TrimSpace(code), "<") {
		return "const GeneratedForm = () => {\n  return (\n" + code + "\n  );\n};\n\nexport default GeneratedForm;"
	}
	return code
}

const copyHandlerSnippet = `
  const [copyStatus, setCopyStatus] = React.useState("");
  const handleCopy = async () => {
    try {
      await navigator.clipboard.writeText(JSON.stringify(formData, null, 2));
      setCopyStatus("Copied!");
    } catch (err) {
      setCopyStatus("Copy failed");
    }
  };
`

const copyButtonSnippet = `<button type="button" onClick={handleCopy} className="mt-4 px-4 py-2 rounded-md border">Copy {copyStatus}</button>`

var componentBodyOpen = regexp.MustCompile(`(?:function\s+[A-Z]\w*\s*\([^)]*\)|const\s+[A-Z]\w*\s*=\s*(?:\([^)]*\)|[A-Za-z_$]\w*)\s*=>)\s*\{`)

var copyButton = regexp.MustCompile(`<button\b[^>]*>\s*Copy\b`)

// ensureCopyAffordance injects a handler that copies the component's
// working data to the clipboard, and makes sure a button triggers it.
// Components that already define handleCopy, or that keep no formData
// state to copy, are left alone.
func ensureCopyAffordance(code string) string {
	if strings.Contains(code, "handleCopy") || !strings.Contains(code, "formData") {
		return code
	}

	loc := componentBodyOpen.FindStringIndex(code)
	if loc == nil {
		return code
	}
	out := code[:loc[1]] + copyHandlerSnippet + code[loc[1]:]

	if btn := copyButton.FindStringIndex(out); btn != nil {
		// Wire the existing copy button to the handler.
		tag := out[btn[0]:btn[1]]
		if !strings.Contains(tag, "onClick") {
			wired := strings.Replace(tag, "<button", `<button onClick={handleCopy}`, 1)
			out = out[:btn[0]] + wired + out[btn[1]:]
		}
		return out
	}

	// No copy button anywhere; synthesize one just before the last
	// closing tag of the rendered tree.
	if idx := strings.LastIndex(out, "</"); idx >= 0 {
		out = out[:idx] + "  " + copyButtonSnippet + "\n    " + out[idx:]
	}
	return out
}
