package users

import (
	"reflect"

	"github.com/toyz/mininest/internal/example/apidocs"
	"github.com/toyz/mininest/pkg/nest"
	"github.com/toyz/mininest/pkg/nest/annotation"
)

// UsersModule bundles the user service and controller
type UsersModule struct{}

// Routes are declared in decorator form. Search comes before FindOne so
// routers matching in registration order see the static segment first.
var routes = []string{
	"@Controller('users')",
	"@Get() FindAll(@Ctx)",
	"@Get('search') Search(@Ctx, @Query('name'))",
	"@Get(':id') FindOne(@Ctx, @Param('id'))",
	"@Post() Create(@Ctx, @Body)",
	"@Put(':id') Update(@Ctx, @Param('id'), @Body)",
	"@Delete(':id') Remove(@Ctx, @Param('id'))",
}

var operations = map[string]apidocs.OperationOptions{
	"FindAll": {
		Summary:     "List users",
		Description: "Returns every user",
		Responses:   map[string]apidocs.ResponseDoc{"200": {Description: "User list"}},
	},
	"Search": {
		Summary:     "Search users",
		Description: "Returns users whose name contains the name query parameter",
		Responses:   map[string]apidocs.ResponseDoc{"200": {Description: "Matching users"}},
	},
	"FindOne": {
		Summary:     "Get a user",
		Description: "Returns the user with the given id",
		Responses: map[string]apidocs.ResponseDoc{
			"200": {Description: "The user"},
			"404": {Description: "No such user"},
		},
	},
	"Create": {
		Summary:     "Create a user",
		Description: "Creates a user from the request body",
		Responses:   map[string]apidocs.ResponseDoc{"201": {Description: "User created"}},
	},
	"Update": {
		Summary:     "Update a user",
		Description: "Updates the given fields of a user",
		Responses: map[string]apidocs.ResponseDoc{
			"200": {Description: "User updated"},
			"404": {Description: "No such user"},
		},
	},
	"Remove": {
		Summary:     "Delete a user",
		Description: "Deletes the user with the given id",
		Responses: map[string]apidocs.ResponseDoc{
			"200": {Description: "User deleted"},
			"404": {Description: "No such user"},
		},
	},
}

// Declare records UsersModule on store with users persisted in backing
func Declare(store *nest.MetadataStore, backing Store) (reflect.Type, error) {
	controller, err := annotation.Declare[*UserController](store, routes...)
	if err != nil {
		return nil, err
	}
	apidocs.ApiTag(store, controller, apidocs.TagOptions{
		Name:        "users",
		Description: "CRUD operations on the user resource",
	})
	for method, op := range operations {
		apidocs.ApiOperation(store, controller, method, op)
	}

	module := nest.TypeOf[UsersModule]()
	err = nest.DeclareModule(store, module, nest.ModuleOptions{
		Providers:   []any{nest.ValueAs[Store](backing), NewUserService},
		Controllers: []any{NewUserController},
		Exports:     []any{NewUserService},
	})
	if err != nil {
		return nil, err
	}
	return module, nil
}
