// Package config parses the tool's Lua configuration.
//
// Configuration is a declarative Lua script defining a global "loom"
// table. Before the script runs, a read-only "platform" table is
// injected so configs can vary directories or options by OS, pointer
// width, or Linux distribution:
//
//	loom = {
//	    natives = {
//	        dir = platform.is_windows and "C:/natives" or "/tmp/natives",
//	        cache_dir = "jars",
//	    },
//	    manifest = "1.17.1.json",
//	    options = {
//	        offline = platform.is_ci,
//	    },
//	}
//
// Scripts run in a sandboxed VM with no filesystem, process, or module
// loading access.
package config
