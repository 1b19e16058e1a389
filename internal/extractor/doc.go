// Package extractor infers what a dynamic gateway exports.
//
// A gateway names the sibling modules it aggregates, usually in a literal
// list:
//
//	modules_to_export = ["models", "views"]
//
//	for name in modules_to_export:
//	    mod = import_module("." + name, __name__)
//	    globals().update({k: getattr(mod, k) for k in mod.__all__})
//
// ModuleList reads that list (or falls back to every sibling source file) and
// Collect unions the __all__ list of each sibling with the names the gateway
// binds itself before its first loop or conditional.
//
// Nothing is imported or executed. Siblings that are missing are skipped
// silently; siblings that fail to parse are logged and contribute nothing.
package extractor
