package main

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type HouseKeepingCmd struct {
	MaxTokenAge time.Duration `default:"720h" help:"delete access tokens older than this"`
}

func (c *HouseKeepingCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			DELETE FROM tokens
			WHERE created_at < ?
		`, time.Now().Add(-c.MaxTokenAge))
		if res.Error != nil {
			return res.Error
		}
		fmt.Println("deleted", res.RowsAffected, "expired tokens")

		// memberships and comments cascade when their activity is deleted,
		// but a mysql schema migrated before the constraints were added can
		// still hold orphans
		res = tx.Exec(`
			DELETE FROM memberships
			WHERE activity_id NOT IN (SELECT id FROM activities)
		`)
		if res.Error != nil {
			return res.Error
		}
		fmt.Println("deleted", res.RowsAffected, "orphaned memberships")

		res = tx.Exec(`
			DELETE FROM comments
			WHERE activity_id NOT IN (SELECT id FROM activities)
		`)
		if res.Error != nil {
			return res.Error
		}
		fmt.Println("deleted", res.RowsAffected, "orphaned comments")

		// cascade deletes bypass the gorm hooks that maintain the hosted
		// count, so recount from the surviving memberships
		res = tx.Exec(`
			UPDATE actors
			SET hosted_count = (
				SELECT COUNT(*) FROM memberships
				WHERE memberships.actor_id = actors.id
				AND memberships.host = ?
			)
		`, true)
		if res.Error != nil {
			return res.Error
		}
		fmt.Println("recounted hosted activities for", res.RowsAffected, "actors")

		return nil
	})
}
