package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/pcbforge/kicad-mcp/internal/taskstore"
	"github.com/pcbforge/kicad-mcp/pkg/types"
)

func (d *Deps) autoRoute(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	maxPasses := argInt(args, "max_passes", 100)
	async := argBool(args, "async_mode", true)

	result, err := d.Launcher.Start(ctx, project, maxPasses, async)
	if err != nil {
		return nil, err
	}

	if result.Async {
		d.recordRouteStarted()
		return map[string]any{
			"success": true,
			"async":   true,
			"task_id": result.TaskID,
			"message": result.Message,
			"backup":  result.Backup,
		}, nil
	}
	return map[string]any{
		"success": true,
		"message": result.Message,
		"backup":  result.Backup,
		"pcb":     result.PCB,
	}, nil
}

func (d *Deps) getTaskStatus(ctx context.Context, args map[string]any) (any, error) {
	taskID := argString(args, "task_id")
	view, err := d.Monitor.GetStatus(types.TaskID(taskID))
	if err != nil {
		if errors.Is(err, taskstore.ErrTaskNotFound) {
			return nil, fmt.Errorf("任務不存在: %s", taskID)
		}
		return nil, err
	}
	return view, nil
}

func (d *Deps) listTasks(ctx context.Context, args map[string]any) (any, error) {
	views, err := d.Monitor.ListTasks()
	if err != nil {
		return nil, err
	}
	d.recordTasksKnown(len(views))
	return map[string]any{"tasks": views, "count": len(views)}, nil
}
