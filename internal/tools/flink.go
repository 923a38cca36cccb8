// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"time"
)

func (r *Registry) registerFlinkTools() {
	r.read(tool("get_flink_cluster_api",
		"Connect to the current project's Flink cluster API.",
		noArgs()),
		r.handleGetFlinkClusterAPI)

	r.write(tool("setup_cluster",
		"Create a Flink cluster job or replace an existing one.",
		schema(map[string]any{
			"name":   stringProp("Cluster name"),
			"config": objectProp("Cluster configuration, defaults come from the backend template"),
		}, "name")),
		r.handleSetupFlinkCluster)

	r.read(tool("get_cluster",
		"Get a Flink cluster of the project by name.",
		schema(map[string]any{
			"name": stringProp("Cluster name"),
		}, "name")),
		r.handleGetFlinkCluster)

	r.write(tool("start_cluster",
		"Start a Flink cluster and wait for it to come up.",
		schema(map[string]any{
			"name":       stringProp("Cluster to start"),
			"await_time": numberProp("Maximum seconds to wait, default 1800"),
		}, "name")),
		r.handleStartFlinkCluster)

	r.destructive(tool("stop_cluster",
		"Stop a running Flink cluster.",
		schema(map[string]any{
			"name": stringProp("Cluster to stop"),
		}, "name")),
		r.handleStopFlinkCluster)

	r.write(tool("upload_jar",
		"Upload a local jar file to a running Flink cluster.",
		schema(map[string]any{
			"cluster_name":  stringProp("Target cluster"),
			"jar_file_path": stringProp("Local path of the jar"),
		}, "cluster_name", "jar_file_path")),
		r.handleUploadFlinkJar)

	r.read(tool("get_jars",
		"List the jars uploaded to a running Flink cluster.",
		schema(map[string]any{
			"cluster_name": stringProp("Cluster to inspect"),
		}, "cluster_name")),
		r.handleGetFlinkJars)

	r.write(tool("submit_job",
		"Submit a job to a running Flink cluster from an uploaded jar.",
		schema(map[string]any{
			"cluster_name":  stringProp("Target cluster"),
			"jar_id":        stringProp("Uploaded jar id, from get_jars"),
			"main_class":    stringProp("Entry point class"),
			"job_arguments": stringProp("Program arguments"),
		}, "cluster_name", "jar_id", "main_class")),
		r.handleSubmitFlinkJob)

	r.read(tool("get_flink_jobs",
		"List the jobs of a running Flink cluster.",
		schema(map[string]any{
			"cluster_name": stringProp("Cluster to inspect"),
		}, "cluster_name")),
		r.handleGetFlinkJobs)

	r.read(tool("get_flink_job",
		"Get one job of a running Flink cluster.",
		schema(map[string]any{
			"cluster_name": stringProp("Cluster owning the job"),
			"job_id":       stringProp("Flink job id"),
		}, "cluster_name", "job_id")),
		r.handleGetFlinkJob)

	r.read(tool("job_state",
		"Get the state of a job in a running Flink cluster.",
		schema(map[string]any{
			"cluster_name": stringProp("Cluster owning the job"),
			"job_id":       stringProp("Flink job id"),
		}, "cluster_name", "job_id")),
		r.handleFlinkJobState)

	r.destructive(tool("stop_job",
		"Stop a job running in a Flink cluster.",
		schema(map[string]any{
			"cluster_name": stringProp("Cluster owning the job"),
			"job_id":       stringProp("Flink job to stop"),
		}, "cluster_name", "job_id")),
		r.handleStopFlinkJob)
}

func (r *Registry) handleGetFlinkClusterAPI(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":    "ok",
		"connected": true,
		"project":   session.Project().Name,
	}, nil
}

type flinkClusterArgs struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

func (r *Registry) handleSetupFlinkCluster(ctx context.Context, args json.RawMessage) (any, error) {
	var a flinkClusterArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	job, err := session.Client().SetupFlinkCluster(ctx, session.Project().ID, a.Name, a.Config)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "name": job.Name, "job_type": job.JobType}, nil
}

func (r *Registry) handleGetFlinkCluster(ctx context.Context, args json.RawMessage) (any, error) {
	var a flinkClusterArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	cluster, err := session.Client().GetFlinkCluster(ctx, session.Project().ID, a.Name)
	if err != nil {
		return nil, err
	}
	result := map[string]any{
		"status":        "ok",
		"name":          cluster.Name,
		"state":         cluster.State,
		"creation_time": cluster.CreationTime,
		"creator":       cluster.Creator,
	}
	if cluster.Execution != nil {
		result["execution_id"] = cluster.Execution.ID
		result["app_id"] = cluster.Execution.AppID
	}
	return result, nil
}

type startFlinkArgs struct {
	Name      string `json:"name"`
	AwaitTime int    `json:"await_time"`
}

func (r *Registry) handleStartFlinkCluster(ctx context.Context, args json.RawMessage) (any, error) {
	var a startFlinkArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	timeout := 30 * time.Minute
	if a.AwaitTime > 0 {
		timeout = time.Duration(a.AwaitTime) * time.Second
	}
	exec, err := session.Client().StartFlinkCluster(ctx, session.Project().ID, a.Name, timeout)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":       "started",
		"name":         a.Name,
		"execution_id": exec.ID,
		"state":        exec.State,
		"app_id":       exec.AppID,
	}, nil
}

func (r *Registry) handleStopFlinkCluster(ctx context.Context, args json.RawMessage) (any, error) {
	var a flinkClusterArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().StopFlinkCluster(ctx, session.Project().ID, a.Name); err != nil {
		return nil, err
	}
	return map[string]any{"status": "stopped", "name": a.Name}, nil
}

type flinkJarArgs struct {
	ClusterName string `json:"cluster_name"`
	JarFilePath string `json:"jar_file_path"`
}

func (r *Registry) handleUploadFlinkJar(ctx context.Context, args json.RawMessage) (any, error) {
	var a flinkJarArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().UploadFlinkJar(ctx, session.Project().ID, a.ClusterName, a.JarFilePath); err != nil {
		return nil, err
	}
	return map[string]any{"status": "uploaded", "cluster": a.ClusterName, "jar": a.JarFilePath}, nil
}

func (r *Registry) handleGetFlinkJars(ctx context.Context, args json.RawMessage) (any, error) {
	var a flinkJarArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	jars, err := session.Client().ListFlinkJars(ctx, session.Project().ID, a.ClusterName)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "cluster": a.ClusterName, "count": len(jars), "jars": jars}, nil
}

type submitFlinkJobArgs struct {
	ClusterName  string `json:"cluster_name"`
	JarID        string `json:"jar_id"`
	MainClass    string `json:"main_class"`
	JobArguments string `json:"job_arguments"`
}

func (r *Registry) handleSubmitFlinkJob(ctx context.Context, args json.RawMessage) (any, error) {
	var a submitFlinkJobArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	jobID, err := session.Client().SubmitFlinkJob(ctx, session.Project().ID, a.ClusterName, a.JarID, a.MainClass, a.JobArguments)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":  "submitted",
		"cluster": a.ClusterName,
		"job_id":  jobID,
	}, nil
}

type flinkJobRef struct {
	ClusterName string `json:"cluster_name"`
	JobID       string `json:"job_id"`
}

func (r *Registry) handleGetFlinkJobs(ctx context.Context, args json.RawMessage) (any, error) {
	var a flinkJobRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	jobs, err := session.Client().ListFlinkJobs(ctx, session.Project().ID, a.ClusterName)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "cluster": a.ClusterName, "count": len(jobs), "jobs": jobs}, nil
}

func (r *Registry) handleGetFlinkJob(ctx context.Context, args json.RawMessage) (any, error) {
	var a flinkJobRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	job, err := session.Client().GetFlinkJob(ctx, session.Project().ID, a.ClusterName, a.JobID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "cluster": a.ClusterName, "job": job}, nil
}

func (r *Registry) handleFlinkJobState(ctx context.Context, args json.RawMessage) (any, error) {
	var a flinkJobRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	state, err := session.Client().FlinkJobState(ctx, session.Project().ID, a.ClusterName, a.JobID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "cluster": a.ClusterName, "job_id": a.JobID, "state": state}, nil
}

func (r *Registry) handleStopFlinkJob(ctx context.Context, args json.RawMessage) (any, error) {
	var a flinkJobRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().StopFlinkJob(ctx, session.Project().ID, a.ClusterName, a.JobID); err != nil {
		return nil, err
	}
	return map[string]any{"status": "stopped", "cluster": a.ClusterName, "job_id": a.JobID}, nil
}
