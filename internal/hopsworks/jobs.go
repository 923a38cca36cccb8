// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// JobSchedule is the cron schedule of a job.
type JobSchedule struct {
	ID             int    `json:"id,omitempty"`
	CronExpression string `json:"cronExpression"`
	StartTime      string `json:"startDateTime,omitempty"`
	EndTime        string `json:"endDateTime,omitempty"`
	NextExecution  string `json:"nextExecutionDateTime,omitempty"`
	Enabled        bool   `json:"enabled"`
}

// Job is a compute job owned by a project.
type Job struct {
	ID           int            `json:"id,omitempty"`
	Name         string         `json:"name"`
	JobType      string         `json:"jobType,omitempty"`
	Creator      string         `json:"creator,omitempty"`
	CreationTime string         `json:"creationTime,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
	Schedule     *JobSchedule   `json:"jobSchedule,omitempty"`
}

// Execution is one run of a job.
type Execution struct {
	ID             int    `json:"id"`
	JobName        string `json:"jobName,omitempty"`
	State          string `json:"state,omitempty"`
	FinalStatus    string `json:"finalStatus,omitempty"`
	Success        bool   `json:"success,omitempty"`
	SubmissionTime string `json:"submissionTime,omitempty"`
	Duration       int64  `json:"duration,omitempty"`
	AppID          string `json:"appId,omitempty"`
	Args           string `json:"args,omitempty"`
	StdoutPath     string `json:"stdoutPath,omitempty"`
	StderrPath     string `json:"stderrPath,omitempty"`
}

var jobTypes = map[string]bool{
	"SPARK": true, "PYSPARK": true, "PYTHON": true, "DOCKER": true, "FLINK": true,
}

// ValidateJobType checks a job type name, case-insensitively.
func ValidateJobType(jobType string) (string, error) {
	upper := strings.ToUpper(jobType)
	if !jobTypes[upper] {
		return "", NewError(KindInvalidArgument, "job",
			"unknown job type %q (expected SPARK, PYSPARK, PYTHON, DOCKER or FLINK)", jobType)
	}
	return upper, nil
}

func jobsRoot(projectID int) string {
	return fmt.Sprintf("project/%d/jobs", projectID)
}

func jobPath(projectID int, name string) string {
	return jobsRoot(projectID) + "/" + url.PathEscape(name)
}

// GetJobConfiguration returns the default configuration template for a
// job type.
func (c *Client) GetJobConfiguration(ctx context.Context, projectID int, jobType string) (map[string]any, error) {
	jt, err := ValidateJobType(jobType)
	if err != nil {
		return nil, err
	}
	var config map[string]any
	path := fmt.Sprintf("project/%d/jobconfig/%s", projectID, strings.ToLower(jt))
	if err := c.get(ctx, "get job configuration", path, nil, &config); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateJob creates or replaces a job with the given configuration.
func (c *Client) CreateJob(ctx context.Context, projectID int, name string, config map[string]any) (*Job, error) {
	const op = "create job"
	if name == "" {
		return nil, NewError(KindInvalidArgument, op, "job name is required")
	}
	if len(config) == 0 {
		return nil, NewError(KindInvalidArgument, op, "job configuration is required")
	}
	var job Job
	if err := c.put(ctx, op, jobPath(projectID, name), nil, config, &job); err != nil {
		return nil, err
	}
	if job.Name == "" {
		job.Name = name
		job.Config = config
	}
	return &job, nil
}

// GetJob returns a job by name.
func (c *Client) GetJob(ctx context.Context, projectID int, name string) (*Job, error) {
	var job Job
	if err := c.get(ctx, "get job", jobPath(projectID, name), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns all jobs of the project.
func (c *Client) ListJobs(ctx context.Context, projectID int) ([]Job, error) {
	var resp itemsEnvelope[Job]
	if err := c.get(ctx, "list jobs", jobsRoot(projectID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// DeleteJob removes a job and its executions.
func (c *Client) DeleteJob(ctx context.Context, projectID int, name string) error {
	return c.delete(ctx, "delete job", jobPath(projectID, name), nil)
}

// UpdateJobSchedule sets or replaces the cron schedule of a job.
func (c *Client) UpdateJobSchedule(ctx context.Context, projectID int, name string, schedule JobSchedule) (*JobSchedule, error) {
	const op = "schedule job"
	if schedule.CronExpression == "" {
		return nil, NewError(KindInvalidArgument, op, "cron expression is required")
	}
	var updated JobSchedule
	if err := c.put(ctx, op, jobPath(projectID, name)+"/schedule/v2", nil, schedule, &updated); err != nil {
		return nil, err
	}
	if updated.CronExpression == "" {
		updated = schedule
	}
	return &updated, nil
}

// DeleteJobSchedule removes the cron schedule of a job.
func (c *Client) DeleteJobSchedule(ctx context.Context, projectID int, name string) error {
	return c.delete(ctx, "unschedule job", jobPath(projectID, name)+"/schedule/v2", nil)
}

// RunJob starts a new execution of the named job.
func (c *Client) RunJob(ctx context.Context, projectID int, name, args string) (*Execution, error) {
	var exec Execution
	body := map[string]any{"args": args}
	if err := c.post(ctx, "run job", jobPath(projectID, name)+"/executions", nil, body, &exec); err != nil {
		return nil, err
	}
	if exec.JobName == "" {
		exec.JobName = name
	}
	return &exec, nil
}

// ListExecutions returns the executions of a job, newest first.
func (c *Client) ListExecutions(ctx context.Context, projectID int, jobName string) ([]Execution, error) {
	q := url.Values{}
	q.Set("sort_by", "submissiontime:desc")
	var resp itemsEnvelope[Execution]
	if err := c.get(ctx, "list executions", jobPath(projectID, jobName)+"/executions", q, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetExecution returns one execution of a job.
func (c *Client) GetExecution(ctx context.Context, projectID int, jobName string, executionID int) (*Execution, error) {
	var exec Execution
	path := fmt.Sprintf("%s/executions/%d", jobPath(projectID, jobName), executionID)
	if err := c.get(ctx, "get execution", path, nil, &exec); err != nil {
		return nil, err
	}
	if exec.JobName == "" {
		exec.JobName = jobName
	}
	return &exec, nil
}

// StopExecution requests a running execution to stop.
func (c *Client) StopExecution(ctx context.Context, projectID int, jobName string, executionID int) error {
	body := map[string]any{"state": "stopped"}
	path := fmt.Sprintf("%s/executions/%d/status", jobPath(projectID, jobName), executionID)
	return c.put(ctx, "stop execution", path, nil, body, nil)
}

// ExecutionLog is the captured output of an execution.
type ExecutionLog struct {
	Type string `json:"type"`
	Log  string `json:"log"`
	Path string `json:"path,omitempty"`
}

// GetExecutionLogs fetches the stdout and stderr logs of an execution.
func (c *Client) GetExecutionLogs(ctx context.Context, projectID int, jobName string, executionID int) (stdout, stderr *ExecutionLog, err error) {
	base := fmt.Sprintf("%s/executions/%d/log", jobPath(projectID, jobName), executionID)
	var out, errLog ExecutionLog
	if err := c.get(ctx, "get execution logs", base+"/out", nil, &out); err != nil {
		return nil, nil, err
	}
	if err := c.get(ctx, "get execution logs", base+"/err", nil, &errLog); err != nil {
		return nil, nil, err
	}
	return &out, &errLog, nil
}
