// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package catalog

import "github.com/3leaps/taintsentry/internal/types"

// defaultTaintedParams mark parameters that likely carry request data.
var defaultTaintedParams = []string{"user", "input", "param", "request"}

// Builtin returns the builtin catalog for lang, or nil when none exists.
// These catalogs are compiled into the binary.
func Builtin(lang types.Language) *Catalog {
	switch lang {
	case types.LanguagePython:
		return MustNew(pythonSpec())
	case types.LanguageShell:
		return MustNew(shellSpec())
	case types.LanguageJavaScript, types.LanguageTypeScript:
		spec := javascriptSpec()
		spec.Language = lang
		return MustNew(spec)
	case types.LanguagePHP:
		return MustNew(phpSpec())
	case types.LanguageRuby:
		return MustNew(rubySpec())
	default:
		return nil
	}
}

func pythonSpec() Spec {
	return Spec{
		Language: types.LanguagePython,
		Sources: []string{
			"input",
			"raw_input",
			"sys.stdin",
			"sys.argv",
			"os.environ",
			"os.getenv",
			"request.args",
			"request.form",
			"request.values",
			"request.get_json",
			"request.json",
			"request.data",
			"request.cookies",
			"request.headers",
			"request.files",
			"request.GET",
			"request.POST",
			"flask.request",
			"django.request",
		},
		Sinks: []SinkSignature{
			{Name: "eval", Kind: types.KindCodeInjection},
			{Name: "exec", Kind: types.KindCodeInjection},
			{Name: "compile", Kind: types.KindCodeInjection},
			{Name: "__import__", Kind: types.KindCodeInjection},
			{Name: "os.system", Kind: types.KindCommandInjection},
			{Name: "os.popen", Kind: types.KindCommandInjection},
			{Name: "subprocess.call", Kind: types.KindCommandInjection},
			{Name: "subprocess.run", Kind: types.KindCommandInjection},
			{Name: "subprocess.Popen", Kind: types.KindCommandInjection},
			{Name: "subprocess.check_call", Kind: types.KindCommandInjection},
			{Name: "subprocess.check_output", Kind: types.KindCommandInjection},
			{Name: "cursor.execute", Kind: types.KindSQLInjection},
			{Name: "cursor.executemany", Kind: types.KindSQLInjection},
			{Name: "connection.execute", Kind: types.KindSQLInjection},
			{Name: "conn.execute", Kind: types.KindSQLInjection},
			{Name: "db.execute", Kind: types.KindSQLInjection},
			{Name: "pickle.loads", Kind: types.KindDeserialization},
			{Name: "pickle.load", Kind: types.KindDeserialization},
			{Name: "marshal.loads", Kind: types.KindDeserialization},
			{Name: "yaml.load", Kind: types.KindDeserialization},
			{Name: "open", Kind: types.KindPathTraversal},
			{Name: "os.remove", Kind: types.KindPathTraversal},
			{Name: "shutil.rmtree", Kind: types.KindPathTraversal},
			{Name: "send_file", Kind: types.KindPathTraversal},
			{Name: "render_template_string", Kind: types.KindXSS},
			{Name: "Markup", Kind: types.KindXSS},
			{Name: "requests.get", Kind: types.KindSSRF},
			{Name: "requests.post", Kind: types.KindSSRF},
			{Name: "urllib.request.urlopen", Kind: types.KindSSRF},
		},
		TaintedParams: defaultTaintedParams,
	}
}

func shellSpec() Spec {
	return Spec{
		Language: types.LanguageShell,
		Sources: []string{
			"read",
			"curl",
			"wget",
			"$1", "$2", "$3", "$4", "$5", "$6", "$7", "$8", "$9",
			"$@",
			"$*",
		},
		Sinks: []SinkSignature{
			{Name: "eval", Kind: types.KindCodeInjection},
			{Name: "source", Kind: types.KindCodeInjection},
			{Name: ".", Kind: types.KindCodeInjection},
			{Name: "sh", Kind: types.KindCommandInjection},
			{Name: "bash", Kind: types.KindCommandInjection},
			{Name: "zsh", Kind: types.KindCommandInjection},
			{Name: "xargs", Kind: types.KindCommandInjection},
			{Name: "mysql", Kind: types.KindSQLInjection},
			{Name: "psql", Kind: types.KindSQLInjection},
			{Name: "sqlite3", Kind: types.KindSQLInjection},
			{Name: "rm", Kind: types.KindPathTraversal},
			{Name: "cat", Kind: types.KindPathTraversal},
			{Name: "curl", Kind: types.KindSSRF},
			{Name: "wget", Kind: types.KindSSRF},
		},
	}
}

func javascriptSpec() Spec {
	return Spec{
		Language: types.LanguageJavaScript,
		Sources: []string{
			"req.body",
			"req.query",
			"req.params",
			"req.cookies",
			"req.headers",
			"process.argv",
			"process.env",
			"window.location",
			"location.hash",
			"location.search",
			"document.cookie",
			"document.referrer",
			"localStorage.getItem",
			"sessionStorage.getItem",
		},
		Sinks: []SinkSignature{
			{Name: "eval(", Kind: types.KindCodeInjection},
			{Name: "Function(", Kind: types.KindCodeInjection},
			{Name: "setTimeout(", Kind: types.KindCodeInjection},
			{Name: "setInterval(", Kind: types.KindCodeInjection},
			{Name: ".innerHTML", Kind: types.KindXSS},
			{Name: ".outerHTML", Kind: types.KindXSS},
			{Name: "document.write(", Kind: types.KindXSS},
			{Name: "exec(", Kind: types.KindCommandInjection},
			{Name: "execSync(", Kind: types.KindCommandInjection},
			{Name: "spawn(", Kind: types.KindCommandInjection},
			{Name: "query(", Kind: types.KindSQLInjection},
			{Name: "readFile(", Kind: types.KindPathTraversal},
			{Name: "readFileSync(", Kind: types.KindPathTraversal},
			{Name: "fetch(", Kind: types.KindSSRF},
		},
	}
}

func phpSpec() Spec {
	return Spec{
		Language: types.LanguagePHP,
		Sources: []string{
			"$_GET",
			"$_POST",
			"$_REQUEST",
			"$_COOKIE",
			"$_SERVER",
			"$_FILES",
			"file_get_contents('php://input')",
		},
		Sinks: []SinkSignature{
			{Name: "eval(", Kind: types.KindCodeInjection},
			{Name: "assert(", Kind: types.KindCodeInjection},
			{Name: "system(", Kind: types.KindCommandInjection},
			{Name: "exec(", Kind: types.KindCommandInjection},
			{Name: "shell_exec(", Kind: types.KindCommandInjection},
			{Name: "passthru(", Kind: types.KindCommandInjection},
			{Name: "mysqli_query(", Kind: types.KindSQLInjection},
			{Name: "->query(", Kind: types.KindSQLInjection},
			{Name: "unserialize(", Kind: types.KindDeserialization},
			{Name: "include", Kind: types.KindPathTraversal},
			{Name: "require", Kind: types.KindPathTraversal},
			{Name: "fopen(", Kind: types.KindPathTraversal},
			{Name: "echo", Kind: types.KindXSS},
		},
	}
}

func rubySpec() Spec {
	return Spec{
		Language: types.LanguageRuby,
		Sources: []string{
			"params[",
			"request.params",
			"cookies[",
			"gets",
			"ARGV",
			"ENV[",
		},
		Sinks: []SinkSignature{
			{Name: "eval(", Kind: types.KindCodeInjection},
			{Name: "instance_eval", Kind: types.KindCodeInjection},
			{Name: "system(", Kind: types.KindCommandInjection},
			{Name: "exec(", Kind: types.KindCommandInjection},
			{Name: "`", Kind: types.KindCommandInjection},
			{Name: ".where(", Kind: types.KindSQLInjection},
			{Name: ".find_by_sql(", Kind: types.KindSQLInjection},
			{Name: "Marshal.load", Kind: types.KindDeserialization},
			{Name: "YAML.load", Kind: types.KindDeserialization},
			{Name: "File.open", Kind: types.KindPathTraversal},
			{Name: "File.read", Kind: types.KindPathTraversal},
			{Name: "html_safe", Kind: types.KindXSS},
			{Name: "raw(", Kind: types.KindXSS},
		},
	}
}
