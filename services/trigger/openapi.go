package trigger

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// BasePath is where LoadRoutes is expected to be mounted.
const BasePath = "/api/v1"

func jsonResponse(description string, schema *openapi3.Schema) *openapi3.Response {
	return openapi3.NewResponse().WithDescription(description).WithJSONSchema(schema)
}

func textResponse(description string) *openapi3.Response {
	return openapi3.NewResponse().WithDescription(description)
}

func operation(id, summary string, params ...*openapi3.Parameter) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Summary = summary
	for _, p := range params {
		op.AddParameter(p)
	}
	return op
}

func pathParam(name string) *openapi3.Parameter {
	return openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema())
}

func instanceSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("workflow", openapi3.NewStringSchema()).
		WithProperty("nodeType", openapi3.NewStringSchema()).
		WithProperty("polling", openapi3.NewBoolSchema())
}

func itemsSchema() *openapi3.Schema {
	item := openapi3.NewObjectSchema().WithProperty("json", openapi3.NewObjectSchema())
	return openapi3.NewObjectSchema().WithProperty("items", openapi3.NewArraySchema().WithItems(item))
}

// OpenAPI describes the routes registered by LoadRoutes.
func OpenAPI() *openapi3.T {
	listNodes := operation("listNodes", "List node descriptions")
	listNodes.AddResponse(http.StatusOK, jsonResponse("Node descriptions", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema())))

	getNode := operation("getNode", "Get one node description", pathParam("type"))
	getNode.AddResponse(http.StatusOK, jsonResponse("Node description", openapi3.NewObjectSchema()))
	getNode.AddResponse(http.StatusNotFound, textResponse("Unknown node type"))

	listCreds := operation("listCredentials", "List credential descriptors")
	listCreds.AddResponse(http.StatusOK, jsonResponse("Credential descriptors", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema())))

	testResult := openapi3.NewObjectSchema().
		WithProperty("ok", openapi3.NewBoolSchema()).
		WithProperty("error", openapi3.NewStringSchema())
	testCreds := operation("testCredentials", "Run the credential smoke-test request", pathParam("name"))
	testCreds.AddResponse(http.StatusOK, jsonResponse("Credentials accepted", testResult))
	testCreds.AddResponse(http.StatusBadGateway, jsonResponse("Credentials rejected or platform unreachable", testResult))
	testCreds.AddResponse(http.StatusNotFound, textResponse("Unknown credential type"))

	listInstances := operation("listInstances", "List configured node instances")
	listInstances.AddResponse(http.StatusOK, jsonResponse("Instances", openapi3.NewArraySchema().WithItems(instanceSchema())))

	getState := operation("getInstanceState", "Get the persisted cursor of an instance", pathParam("id"))
	getState.AddResponse(http.StatusOK, jsonResponse("Cursor summary", openapi3.NewObjectSchema().
		WithProperty("lastPollTime", openapi3.NewDateTimeSchema().WithNullable()).
		WithProperty("nextPollAt", openapi3.NewDateTimeSchema().WithNullable()).
		WithProperty("processedCount", openapi3.NewIntegerSchema())))
	getState.AddResponse(http.StatusNotFound, textResponse("Unknown instance"))

	execute := operation("executeInstance", "Invoke an instance once", pathParam("id"))
	execute.AddResponse(http.StatusOK, jsonResponse("Emitted items", itemsSchema()))
	execute.AddResponse(http.StatusNoContent, textResponse("Polling node has nothing new"))
	execute.AddResponse(http.StatusNotFound, textResponse("Unknown instance"))
	execute.AddResponse(http.StatusUnprocessableEntity, textResponse("Node operation error"))

	since := openapi3.NewQueryParameter("since").WithSchema(openapi3.NewDateTimeSchema()).WithRequired(true)
	preview := operation("previewInstance", "Fetch and filter from a given time without saving state", pathParam("id"), since)
	preview.AddResponse(http.StatusOK, jsonResponse("Items that would be emitted", itemsSchema()))
	preview.AddResponse(http.StatusBadRequest, textResponse("Invalid since value"))
	preview.AddResponse(http.StatusNotFound, textResponse("Unknown instance"))
	preview.AddResponse(http.StatusUnprocessableEntity, textResponse("Node operation error"))

	spec := operation("getOpenAPI", "This document")
	spec.AddResponse(http.StatusOK, jsonResponse("OpenAPI document", openapi3.NewObjectSchema()))

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Donation Nodes API",
			Version:     "1.0.0",
			Description: "Inspect and drive CharitysPurse donation trigger nodes.",
		},
		Servers: openapi3.Servers{{URL: BasePath}},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/nodes", &openapi3.PathItem{Get: listNodes}),
			openapi3.WithPath("/nodes/{type}", &openapi3.PathItem{Get: getNode}),
			openapi3.WithPath("/credentials", &openapi3.PathItem{Get: listCreds}),
			openapi3.WithPath("/credentials/{name}/test", &openapi3.PathItem{Post: testCreds}),
			openapi3.WithPath("/instances", &openapi3.PathItem{Get: listInstances}),
			openapi3.WithPath("/instances/{id}/state", &openapi3.PathItem{Get: getState}),
			openapi3.WithPath("/instances/{id}/execute", &openapi3.PathItem{Post: execute}),
			openapi3.WithPath("/instances/{id}/preview", &openapi3.PathItem{Get: preview}),
			openapi3.WithPath("/openapi.json", &openapi3.PathItem{Get: spec}),
		),
	}
}
