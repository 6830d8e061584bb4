package main

import (
	"context"
	"storybee-crawler/cmd/storybee/commands"
	"storybee-crawler/internal/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
