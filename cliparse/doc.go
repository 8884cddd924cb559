// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Commands that own their flag set (cobra) bind and resolve separately:

	cliparse.BindFlags(cmd.Flags(), &cfg)
	cfg, err = cliparse.Resolve(cfg)

# CLI Flags

	-p, --port           Server port (default: 3318)
	-d, --database-url   Database URL or sqlite file
	-t, --database-type  sqlite or postgres (guessed from the URL)
	--base-url           Public base URL for share links
	--admin-salt         Admin key salt
	--slug-salt          Share slug salt
	--credits            Default credit budget per voter (default: 100)
	--session-cache      Max open ballot sessions in memory (default: 4096)
	--env-file           Env file to load (default: .env when present)

# Environment Variables

Flags fall back to environment variables:

	PORT               → -p
	DATABASE_URL       → -d
	DATABASE_TYPE      → -t
	BASE_URL           → --base-url
	ADMIN_KEY_SALT     → --admin-salt
	POLL_SLUG_SALT     → --slug-salt
	DEFAULT_CREDITS    → --credits
	SESSION_CACHE_SIZE → --session-cache

Values in the env file never override variables already set in the process.

# Validation

Resolve returns an error if DATABASE_URL, ADMIN_KEY_SALT or POLL_SLUG_SALT
is missing, if the database type is not sqlite/postgres, or if the default
credit budget is not positive.
*/
package cliparse
