// Command budget-reset closes the current budget period on a schedule:
// summarize, export the ledger and reset it from the template.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"budgetmail/internal/cli"
	blog "budgetmail/internal/log"
)

func main() {
	ctx := context.Background()
	cfg, logger, collab := cli.Bootstrap(ctx)
	defer collab.Close()

	lambda.Start(func(ctx context.Context) error {
		log := blog.WithInvocation(logger, cli.InvocationID(ctx))
		res, err := collab.CloseoutService(cfg, log).Run(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Period close failed", blog.FieldError, err)
			return err
		}
		log.InfoContext(ctx, "Period closed",
			blog.FieldTotal, res.Total.StringFixed(2),
			"exported", res.Exported,
			"reset", res.Reset,
			blog.FieldDryRun, cfg.DryRun)
		return nil
	})
}
