// Package forwarder implements the federation device that bridges a local
// pub/sub bus to a cluster-wide one.
//
// A Forwarder owns four endpoints:
//
//	frontend-subscribe  XSub, bound    local publishers connect here
//	frontend-publish    XPub, bound    local subscribers connect here
//	cluster-publish     XPub, bound    remote forwarders' cluster-subscribe connect here
//	cluster-subscribe   XSub, connect  to a cluster-publish (a remote one, or its own)
//
// Local traffic goes to the cluster and to local subscribers. Cluster traffic
// goes to local subscribers only, which keeps chains, stars and meshes of
// forwarders from amplifying a message across hops. Traffic that comes back
// from the forwarder's own cluster-publish is dropped as loopback, so a
// self-wired forwarder still delivers exactly once.
//
// Subscriptions flow the other way. Control frames from local subscribers are
// counted under the frontend-publish link and mirrored to both subscribe
// endpoints; control frames from remote forwarders are counted under the
// cluster-publish link and mirrored to frontend-subscribe only. A message is
// sent to a publish endpoint only while its link has a matching subscription.
//
// Each Forwarder runs one poll loop on its own goroutine and touches its
// endpoints only from that goroutine. Destroy stops the loop after the current
// iteration, so PollInterval bounds stop latency.
package forwarder
