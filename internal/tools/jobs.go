// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerJobTools() {
	r.read(tool("get_job_api",
		"Connect to the current project's job API.",
		noArgs()),
		r.handleGetJobAPI)

	r.read(tool("get_configuration",
		"Get the default configuration template for a job type.",
		schema(map[string]any{
			"job_type": enumProp("Job type", "SPARK", "PYSPARK", "PYTHON", "DOCKER", "FLINK"),
		}, "job_type")),
		r.handleGetJobConfiguration)

	r.write(tool("create_job",
		"Create a new job or replace an existing one.",
		schema(map[string]any{
			"name":   stringProp("Job name"),
			"config": objectProp("Job configuration, typically derived from get_configuration"),
		}, "name", "config")),
		r.handleCreateJob)

	r.read(tool("get_job",
		"Get a job of the project by name.",
		schema(map[string]any{
			"name": stringProp("Job name"),
		}, "name")),
		r.handleGetJob)

	r.read(tool("get_jobs",
		"List all jobs of the project.",
		noArgs()),
		r.handleGetJobs)

	r.destructive(tool("delete_job",
		"Delete a job and its executions.",
		schema(map[string]any{
			"name": stringProp("Job to delete"),
		}, "name")),
		r.handleDeleteJob)

	r.write(tool("update_job",
		"Update the configuration of an existing job.",
		schema(map[string]any{
			"name":   stringProp("Job name"),
			"config": objectProp("New job configuration"),
		}, "name", "config")),
		r.handleUpdateJob)

	r.write(tool("schedule_job",
		"Set or replace the cron schedule of a job.",
		schema(map[string]any{
			"name":            stringProp("Job to schedule"),
			"cron_expression": stringProp("Quartz cron expression, e.g. 0 0 8 * * ?"),
			"start_time":      stringProp("Schedule start time, ISO 8601"),
			"end_time":        stringProp("Schedule end time, ISO 8601"),
		}, "name", "cron_expression")),
		r.handleScheduleJob)

	r.write(tool("unschedule_job",
		"Remove the cron schedule of a job.",
		schema(map[string]any{
			"name": stringProp("Job to unschedule"),
		}, "name")),
		r.handleUnscheduleJob)

	r.write(tool("pause_schedule",
		"Pause the cron schedule of a job.",
		schema(map[string]any{
			"name": stringProp("Job whose schedule to pause"),
		}, "name")),
		r.handlePauseSchedule)

	r.write(tool("resume_schedule",
		"Resume a paused cron schedule of a job.",
		schema(map[string]any{
			"name": stringProp("Job whose schedule to resume"),
		}, "name")),
		r.handleResumeSchedule)

	r.read(tool("get_job_state",
		"Get the state of a job's most recent execution.",
		schema(map[string]any{
			"name": stringProp("Job name"),
		}, "name")),
		r.handleGetJobState)

	r.write(tool("run_job",
		"Start a new execution of a job, optionally waiting for it to finish.",
		schema(map[string]any{
			"job_name":          stringProp("Job to run"),
			"args":              stringProp("Runtime arguments passed to the execution"),
			"await_termination": boolProp("Wait until the execution reaches a terminal state, default true"),
		}, "job_name")),
		r.handleRunJob)

	r.read(tool("get_executions",
		"List the executions of a job, newest first.",
		schema(map[string]any{
			"job_name": stringProp("Job to inspect"),
		}, "job_name")),
		r.handleGetExecutions)

	r.read(tool("get_execution_status",
		"Get the status of one execution, optionally waiting for it to finish.",
		schema(map[string]any{
			"job_name":          stringProp("Job owning the execution"),
			"execution_id":      numberProp("Execution to inspect"),
			"await_termination": boolProp("Wait until the execution reaches a terminal state"),
			"timeout":           floatProp("Maximum seconds to wait, default 600"),
		}, "job_name", "execution_id")),
		r.handleGetExecutionStatus)

	r.destructive(tool("stop_execution",
		"Stop a running execution.",
		schema(map[string]any{
			"job_name":     stringProp("Job owning the execution"),
			"execution_id": numberProp("Execution to stop"),
		}, "job_name", "execution_id")),
		r.handleStopExecution)

	r.read(tool("download_execution_logs",
		"Fetch the stdout and stderr logs of an execution, optionally writing them to local files.",
		schema(map[string]any{
			"job_name":      stringProp("Job owning the execution"),
			"execution_id":  numberProp("Execution whose logs to fetch"),
			"download_path": stringProp("Local directory to write out.log and err.log into"),
		}, "job_name", "execution_id")),
		r.handleDownloadExecutionLogs)
}

func (r *Registry) handleGetJobAPI(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	jobs, err := session.Client().ListJobs(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":    "ok",
		"connected": true,
		"project":   session.Project().Name,
		"jobs":      len(jobs),
	}, nil
}

type jobTypeArgs struct {
	JobType string `json:"job_type"`
}

func (r *Registry) handleGetJobConfiguration(ctx context.Context, args json.RawMessage) (any, error) {
	var a jobTypeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	config, err := session.Client().GetJobConfiguration(ctx, session.Project().ID, a.JobType)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "job_type": a.JobType, "configuration": config}, nil
}

type jobConfigArgs struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

func (r *Registry) handleCreateJob(ctx context.Context, args json.RawMessage) (any, error) {
	var a jobConfigArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	job, err := session.Client().CreateJob(ctx, session.Project().ID, a.Name, a.Config)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "job": job}, nil
}

type jobRef struct {
	Name string `json:"name"`
}

func (r *Registry) handleGetJob(ctx context.Context, args json.RawMessage) (any, error) {
	var a jobRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	job, err := session.Client().GetJob(ctx, session.Project().ID, a.Name)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "job": job}, nil
}

func (r *Registry) handleGetJobs(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	jobs, err := session.Client().ListJobs(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(jobs), "jobs": jobs}, nil
}

func (r *Registry) handleDeleteJob(ctx context.Context, args json.RawMessage) (any, error) {
	var a jobRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteJob(ctx, session.Project().ID, a.Name); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": a.Name}, nil
}

func (r *Registry) handleUpdateJob(ctx context.Context, args json.RawMessage) (any, error) {
	var a jobConfigArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	// The jobs endpoint upserts by name, so an update reuses the
	// create call after checking the job exists.
	if _, err := session.Client().GetJob(ctx, session.Project().ID, a.Name); err != nil {
		return nil, err
	}
	job, err := session.Client().CreateJob(ctx, session.Project().ID, a.Name, a.Config)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "job": job}, nil
}

type scheduleJobArgs struct {
	Name           string `json:"name"`
	CronExpression string `json:"cron_expression"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

func (r *Registry) handleScheduleJob(ctx context.Context, args json.RawMessage) (any, error) {
	var a scheduleJobArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	schedule, err := session.Client().UpdateJobSchedule(ctx, session.Project().ID, a.Name, hopsworks.JobSchedule{
		CronExpression: a.CronExpression,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		Enabled:        true,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "scheduled", "name": a.Name, "schedule": schedule}, nil
}

func (r *Registry) handleUnscheduleJob(ctx context.Context, args json.RawMessage) (any, error) {
	var a jobRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteJobSchedule(ctx, session.Project().ID, a.Name); err != nil {
		return nil, err
	}
	return map[string]any{"status": "unscheduled", "name": a.Name}, nil
}

// setScheduleEnabled flips the enabled flag of a job's existing
// schedule, keeping the cron expression and window.
func (r *Registry) setScheduleEnabled(ctx context.Context, name string, enabled bool) (*hopsworks.JobSchedule, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	job, err := session.Client().GetJob(ctx, session.Project().ID, name)
	if err != nil {
		return nil, err
	}
	if job.Schedule == nil {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "job schedule",
			"job %q has no schedule", name)
	}
	schedule := *job.Schedule
	schedule.Enabled = enabled
	return session.Client().UpdateJobSchedule(ctx, session.Project().ID, name, schedule)
}

func (r *Registry) handlePauseSchedule(ctx context.Context, args json.RawMessage) (any, error) {
	var a jobRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	schedule, err := r.setScheduleEnabled(ctx, a.Name, false)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "paused", "name": a.Name, "schedule": schedule}, nil
}

func (r *Registry) handleResumeSchedule(ctx context.Context, args json.RawMessage) (any, error) {
	var a jobRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	schedule, err := r.setScheduleEnabled(ctx, a.Name, true)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "resumed", "name": a.Name, "schedule": schedule}, nil
}

func (r *Registry) handleGetJobState(ctx context.Context, args json.RawMessage) (any, error) {
	var a jobRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if _, err := session.Client().GetJob(ctx, session.Project().ID, a.Name); err != nil {
		return nil, err
	}
	executions, err := session.Client().ListExecutions(ctx, session.Project().ID, a.Name)
	if err != nil {
		return nil, err
	}
	if len(executions) == 0 {
		return map[string]any{"status": "ok", "name": a.Name, "state": "NO_EXECUTIONS"}, nil
	}
	latest := executions[0]
	return map[string]any{
		"status":       "ok",
		"name":         a.Name,
		"state":        latest.State,
		"final_status": latest.FinalStatus,
		"execution_id": latest.ID,
	}, nil
}

// terminalExecution reports whether an execution has stopped running.
func terminalExecution(state string) bool {
	switch state {
	case "FINISHED", "FAILED", "KILLED", "FRAMEWORK_FAILURE", "APP_MASTER_START_FAILED", "INITIALIZATION_FAILED":
		return true
	}
	return false
}

// awaitExecution polls an execution until it reaches a terminal state
// or the wait budget runs out.
func (r *Registry) awaitExecution(ctx context.Context, session *hopsworks.Session, jobName string, executionID int, timeout time.Duration) (*hopsworks.Execution, error) {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	exec, err := backoff.Retry(ctx, func() (*hopsworks.Execution, error) {
		exec, err := session.Client().GetExecution(ctx, session.Project().ID, jobName, executionID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if !terminalExecution(exec.State) {
			return nil, fmt.Errorf("execution %d still %s", executionID, exec.State)
		}
		return exec, nil
	}, backoff.WithBackOff(backoff.NewConstantBackOff(3*time.Second)),
		backoff.WithMaxElapsedTime(timeout))
	if err != nil {
		var apiErr *hopsworks.Error
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, hopsworks.NewError(hopsworks.KindUnavailable, "await execution",
			"timed out waiting for execution %d of job %q", executionID, jobName)
	}
	return exec, nil
}

type runJobArgs struct {
	JobName          string `json:"job_name"`
	Args             string `json:"args"`
	AwaitTermination *bool  `json:"await_termination"`
}

func (r *Registry) handleRunJob(ctx context.Context, args json.RawMessage) (any, error) {
	var a runJobArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	exec, err := session.Client().RunJob(ctx, session.Project().ID, a.JobName, a.Args)
	if err != nil {
		return nil, err
	}

	await := true
	if a.AwaitTermination != nil {
		await = *a.AwaitTermination
	}
	if await {
		exec, err = r.awaitExecution(ctx, session, a.JobName, exec.ID, 0)
		if err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"status":    "ok",
		"job_name":  a.JobName,
		"execution": exec,
		"awaited":   await,
	}, nil
}

type executionRef struct {
	JobName     string `json:"job_name"`
	ExecutionID int    `json:"execution_id"`
}

func (r *Registry) handleGetExecutions(ctx context.Context, args json.RawMessage) (any, error) {
	var a executionRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	executions, err := session.Client().ListExecutions(ctx, session.Project().ID, a.JobName)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "job_name": a.JobName, "count": len(executions), "executions": executions}, nil
}

type executionStatusArgs struct {
	executionRef
	AwaitTermination bool    `json:"await_termination"`
	Timeout          float64 `json:"timeout"`
}

func (r *Registry) handleGetExecutionStatus(ctx context.Context, args json.RawMessage) (any, error) {
	var a executionStatusArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}

	var exec *hopsworks.Execution
	if a.AwaitTermination {
		exec, err = r.awaitExecution(ctx, session, a.JobName, a.ExecutionID, time.Duration(a.Timeout*float64(time.Second)))
	} else {
		exec, err = session.Client().GetExecution(ctx, session.Project().ID, a.JobName, a.ExecutionID)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":    "ok",
		"execution": exec,
		"terminal":  terminalExecution(exec.State),
	}, nil
}

func (r *Registry) handleStopExecution(ctx context.Context, args json.RawMessage) (any, error) {
	var a executionRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().StopExecution(ctx, session.Project().ID, a.JobName, a.ExecutionID); err != nil {
		return nil, err
	}
	return map[string]any{"status": "stopped", "job_name": a.JobName, "execution_id": a.ExecutionID}, nil
}

type executionLogsArgs struct {
	executionRef
	DownloadPath string `json:"download_path"`
}

func (r *Registry) handleDownloadExecutionLogs(ctx context.Context, args json.RawMessage) (any, error) {
	var a executionLogsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	stdout, stderr, err := session.Client().GetExecutionLogs(ctx, session.Project().ID, a.JobName, a.ExecutionID)
	if err != nil {
		return nil, err
	}

	result := map[string]any{
		"status":       "ok",
		"job_name":     a.JobName,
		"execution_id": a.ExecutionID,
		"stdout":       stdout.Log,
		"stderr":       stderr.Log,
	}
	if a.DownloadPath != "" {
		if err := os.MkdirAll(a.DownloadPath, 0o755); err != nil {
			return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "download execution logs",
				"create %q: %v", a.DownloadPath, err)
		}
		outPath := filepath.Join(a.DownloadPath, "out.log")
		errPath := filepath.Join(a.DownloadPath, "err.log")
		if err := os.WriteFile(outPath, []byte(stdout.Log), 0o644); err != nil {
			return nil, hopsworks.NewError(hopsworks.KindBackend, "download execution logs", "write %q: %v", outPath, err)
		}
		if err := os.WriteFile(errPath, []byte(stderr.Log), 0o644); err != nil {
			return nil, hopsworks.NewError(hopsworks.KindBackend, "download execution logs", "write %q: %v", errPath, err)
		}
		result["stdout_path"] = outPath
		result["stderr_path"] = errPath
	}
	return result, nil
}
